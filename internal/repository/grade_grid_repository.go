package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// ErrGradeGridNotFound is returned by every grade grid store when no grid was saved for the key.
var ErrGradeGridNotFound = errors.New("grade grid not found")

type gradeGridRow struct {
	StudentID          string `db:"student_id"`
	AcademicYear       string `db:"academic_year"`
	RecordedGradeLevel string `db:"recorded_grade_level"`
	Subjects           []byte `db:"subjects"`
}

// GradeGridRepository stores grade grids as JSONB documents keyed by student and academic year.
type GradeGridRepository struct {
	db *sqlx.DB
}

// NewGradeGridRepository constructs the Postgres grade grid store.
func NewGradeGridRepository(db *sqlx.DB) *GradeGridRepository {
	return &GradeGridRepository{db: db}
}

// Get loads the grid stored at student and year.
func (r *GradeGridRepository) Get(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, error) {
	const query = `SELECT student_id, academic_year, recorded_grade_level, subjects
FROM student_grade_grids WHERE student_id = $1 AND academic_year = $2`
	var row gradeGridRow
	if err := r.db.GetContext(ctx, &row, query, studentID, academicYear); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGradeGridNotFound
		}
		return nil, fmt.Errorf("get grade grid %s: %w", models.GradeGridKey(studentID, academicYear), err)
	}
	grid := &models.GradeGrid{
		StudentID:          row.StudentID,
		AcademicYear:       row.AcademicYear,
		RecordedGradeLevel: models.GradeLevel(row.RecordedGradeLevel),
	}
	if err := json.Unmarshal(row.Subjects, &grid.Subjects); err != nil {
		return nil, fmt.Errorf("decode grade grid %s: %w", grid.Key(), err)
	}
	return grid, nil
}

// Set overwrites the whole grid stored at its key.
func (r *GradeGridRepository) Set(ctx context.Context, grid *models.GradeGrid) error {
	subjects, err := json.Marshal(grid.Subjects)
	if err != nil {
		return fmt.Errorf("encode grade grid %s: %w", grid.Key(), err)
	}
	const query = `INSERT INTO student_grade_grids (student_id, academic_year, recorded_grade_level, subjects)
VALUES ($1, $2, $3, $4)
ON CONFLICT (student_id, academic_year)
DO UPDATE SET recorded_grade_level = EXCLUDED.recorded_grade_level, subjects = EXCLUDED.subjects`
	if _, err := r.db.ExecContext(ctx, query, grid.StudentID, grid.AcademicYear, string(grid.RecordedGradeLevel), subjects); err != nil {
		return fmt.Errorf("save grade grid %s: %w", grid.Key(), err)
	}
	return nil
}
