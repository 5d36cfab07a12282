package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gradebook-api/internal/models"
)

func newStudentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var studentRowColumns = []string{"id", "nis", "full_name", "gender", "grade_level", "active", "created_at", "updated_at"}

func TestStudentRepositoryList(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	rows := sqlmock.NewRows(studentRowColumns).
		AddRow("1", "001", "Student", "M", "5th Primary", true, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, nis, full_name, gender, grade_level, active, created_at, updated_at FROM students WHERE 1=1 AND grade_level = $1 ORDER BY full_name ASC LIMIT 20 OFFSET 0")).
		WithArgs(models.GradeLevel5thPrimary).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM students WHERE 1=1 AND grade_level = $1")).
		WithArgs(models.GradeLevel5thPrimary).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	students, total, err := repo.List(context.Background(), models.StudentFilter{GradeLevel: models.GradeLevel5thPrimary})
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, models.GradeLevel5thPrimary, students[0].GradeLevel)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM students WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(studentRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestStudentRepositoryUpdateGradeLevel(t *testing.T) {
	db, mock, cleanup := newStudentMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec("UPDATE students SET grade_level").
		WithArgs("stu-1", models.GradeLevel1stSecondary, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE students SET grade_level").
		WithArgs("ghost", models.GradeLevel1stSecondary, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateGradeLevel(context.Background(), "stu-1", models.GradeLevel1stSecondary))
	assert.ErrorIs(t, repo.UpdateGradeLevel(context.Background(), "ghost", models.GradeLevel1stSecondary), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
