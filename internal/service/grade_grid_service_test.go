package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type memoryGridStore struct {
	docs    map[string][]byte
	writes  [][]byte
	getErr  error
	setErr  error
	getCall int
}

func newMemoryGridStore() *memoryGridStore {
	return &memoryGridStore{docs: make(map[string][]byte)}
}

func (m *memoryGridStore) Get(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, error) {
	m.getCall++
	if m.getErr != nil {
		return nil, m.getErr
	}
	raw, ok := m.docs[models.GradeGridKey(studentID, academicYear)]
	if !ok {
		return nil, repository.ErrGradeGridNotFound
	}
	var grid models.GradeGrid
	if err := json.Unmarshal(raw, &grid); err != nil {
		return nil, err
	}
	return &grid, nil
}

func (m *memoryGridStore) Set(ctx context.Context, grid *models.GradeGrid) error {
	if m.setErr != nil {
		return m.setErr
	}
	raw, err := json.Marshal(grid)
	if err != nil {
		return err
	}
	m.docs[grid.Key()] = raw
	m.writes = append(m.writes, raw)
	return nil
}

func (m *memoryGridStore) put(t *testing.T, grid *models.GradeGrid) {
	t.Helper()
	raw, err := json.Marshal(grid)
	require.NoError(t, err)
	m.docs[grid.Key()] = raw
}

type memoryStudents struct {
	students map[string]models.Student
	err      error
}

func (m *memoryStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if m.err != nil {
		return nil, m.err
	}
	student, ok := m.students[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &student, nil
}

type memoryGridCache struct {
	entries       map[string][]byte
	sets          int
	failSet       bool
	invalidateErr error
	invalidated   []string
}

func newMemoryGridCache() *memoryGridCache {
	return &memoryGridCache{entries: make(map[string][]byte)}
}

func (m *memoryGridCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memoryGridCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.failSet {
		return errors.New("cache unavailable")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.sets++
	return nil
}

func (m *memoryGridCache) Invalidate(ctx context.Context, key string) error {
	if m.invalidateErr != nil {
		return m.invalidateErr
	}
	delete(m.entries, key)
	m.invalidated = append(m.invalidated, key)
	return nil
}

const (
	testStudentID = "stu-1"
	testYear      = "2024-2025"
)

func newGridFixture(level models.GradeLevel) (*GradeGridService, *memoryGridStore, *memoryStudents) {
	store := newMemoryGridStore()
	students := &memoryStudents{students: map[string]models.Student{
		testStudentID: {ID: testStudentID, FullName: "سارة علي", GradeLevel: level, Active: true},
	}}
	svc := NewGradeGridService(store, students, nil, 0, NewMetricsService(), nil, zap.NewNop())
	return svc, store, students
}

func errorCode(err error) string {
	if err == nil {
		return ""
	}
	return appErrors.FromError(err).Code
}

func TestGradeGridServiceFreshLoadSetSaveReload(t *testing.T) {
	svc, _, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()

	view, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.False(t, view.Persisted)
	assert.Equal(t, models.ConflictStateConsistent, view.ConflictState)
	assert.Equal(t, models.GradeLevel5thPrimary, view.Grid.RecordedGradeLevel)
	require.Len(t, view.Grid.Subjects, 10)
	for _, row := range view.Grid.Subjects {
		assert.Len(t, row.Cells, 17)
	}
	assert.Len(t, view.Schema.Columns, 17)

	_, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "95"})
	require.NoError(t, err)

	reloaded, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.True(t, reloaded.Persisted)
	score := scoreOf(t, reloaded.Grid, subjectMath, upperOctober)
	require.NotNil(t, score)
	assert.Equal(t, 95, *score)
	assert.Nil(t, scoreOf(t, reloaded.Grid, subjectMath, upperMidYear))
}

func TestGradeGridServiceSetCellClamps(t *testing.T) {
	svc, _, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()

	view, err := svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "150"})
	require.NoError(t, err)
	assert.Equal(t, 100, *scoreOf(t, view.Grid, subjectMath, upperOctober))

	view, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "-5"})
	require.NoError(t, err)
	assert.Equal(t, 0, *scoreOf(t, view.Grid, subjectMath, upperOctober))

	view, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: ""})
	require.NoError(t, err)
	assert.Nil(t, scoreOf(t, view.Grid, subjectMath, upperOctober))
}

func TestGradeGridServiceSaveTwiceIsIdentical(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel1stSecondary)
	ctx := context.Background()
	req := dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel1stSecondary,
		Subjects: []models.SubjectGrade{{
			Subject: subjectMath,
			Cells: map[string]models.Cell{
				"نصف السنة":        models.ScoreCell(81),
				"الدرجة النهائية": models.NoteCell("120"),
				models.NotesColumn: models.NoteCell("متميز"),
			},
		}},
	}

	_, err := svc.Save(ctx, testStudentID, testYear, req)
	require.NoError(t, err)
	_, err = svc.Save(ctx, testStudentID, testYear, req)
	require.NoError(t, err)

	require.Len(t, store.writes, 2)
	assert.Equal(t, store.writes[0], store.writes[1])

	stored, err := store.Get(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, 100, *scoreOf(t, stored, subjectMath, "الدرجة النهائية"))
	assert.NoError(t, ValidateGridShape(stored))
}

func TestGradeGridServiceSaveRejectsInvalidPayload(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel1stSecondary)
	ctx := context.Background()

	_, err := svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel1stSecondary,
		Subjects:           []models.SubjectGrade{{Subject: subjectMath, Cells: map[string]models.Cell{"شباط": models.ScoreCell(1)}}},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))

	_, err = svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel1stSecondary,
		Subjects:           []models.SubjectGrade{{Subject: subjectMath, Cells: map[string]models.Cell{"نصف السنة": models.NoteCell("جيد")}}},
	})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
	assert.Empty(t, store.writes)
}

func TestGradeGridServiceConflictBlocksEdits(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel4thPrimary)
	ctx := context.Background()
	store.put(t, NewGradeGrid(testStudentID, testYear, models.GradeLevel3rdPrimary))

	view, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStateConflicted, view.ConflictState)
	assert.Equal(t, models.GradeLevel3rdPrimary, view.Grid.RecordedGradeLevel)
	assert.Equal(t, models.GradeLevel4thPrimary, view.CurrentGradeLevel)

	_, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: "النهائي", Value: "50"})
	assert.Equal(t, appErrors.ErrConflictBlocked.Code, errorCode(err))

	_, err = svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel4thPrimary,
		Subjects:           []models.SubjectGrade{{Subject: subjectMath}},
	})
	assert.Equal(t, appErrors.ErrConflictBlocked.Code, errorCode(err))
	assert.Empty(t, store.writes)
}

func TestGradeGridServiceSaveRejectsStaleGradeLevel(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel4thPrimary)

	_, err := svc.Save(context.Background(), testStudentID, testYear, dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel3rdPrimary,
		Subjects:           []models.SubjectGrade{{Subject: subjectMath}},
	})
	assert.Equal(t, appErrors.ErrConflictBlocked.Code, errorCode(err))
	assert.Empty(t, store.writes)
}

func TestGradeGridServiceResetResolvesConflict(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel1stSecondary)
	ctx := context.Background()
	old, err := SetCell(NewGradeGrid(testStudentID, testYear, models.GradeLevel6thPrimary), subjectMath, upperOctober, "90")
	require.NoError(t, err)
	store.put(t, old)

	_, err = svc.Reset(ctx, testStudentID, testYear, dto.ResetGradeGridRequest{Confirm: false})
	assert.Equal(t, appErrors.ErrConfirmationRequired.Code, errorCode(err))
	assert.Empty(t, store.writes)

	view, err := svc.Reset(ctx, testStudentID, testYear, dto.ResetGradeGridRequest{Confirm: true})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStateConsistent, view.ConflictState)
	assert.Equal(t, models.GradeLevel1stSecondary, view.Grid.RecordedGradeLevel)
	for _, row := range view.Grid.Subjects {
		require.Len(t, row.Cells, 9)
		for _, cell := range row.Cells {
			assert.True(t, cell.IsEmpty())
		}
	}
	require.Len(t, store.writes, 1)

	_, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: "نصف السنة", Value: "64"})
	require.NoError(t, err)
}

func TestGradeGridServiceCorrectedLevelResolvesConflict(t *testing.T) {
	svc, store, students := newGridFixture(models.GradeLevel4thPrimary)
	ctx := context.Background()
	store.put(t, NewGradeGrid(testStudentID, testYear, models.GradeLevel3rdPrimary))

	student := students.students[testStudentID]
	student.GradeLevel = models.GradeLevel3rdPrimary
	students.students[testStudentID] = student

	view, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStateConsistent, view.ConflictState)
}

func TestGradeGridServiceStoreFailurePropagates(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()
	cache := newMemoryGridCache()
	svc.cache = cache
	outage := errors.New("document store unavailable")
	store.setErr = outage

	_, err := svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "95"})
	require.Error(t, err)
	assert.ErrorIs(t, err, outage)
	assert.Equal(t, appErrors.ErrInternal.Code, errorCode(err))
	assert.Zero(t, cache.sets)

	store.setErr = nil
	store.getErr = outage
	_, err = svc.Load(ctx, testStudentID, testYear)
	assert.ErrorIs(t, err, outage)
}

func TestGradeGridServiceReadsThroughCache(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()
	svc.cache = newMemoryGridCache()

	_, err := svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "70"})
	require.NoError(t, err)
	calls := store.getCall

	view, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, calls, store.getCall)
	assert.True(t, view.Persisted)
	assert.Equal(t, 70, *scoreOf(t, view.Grid, subjectMath, upperOctober))
}

func TestGradeGridServiceDropsCacheEntryWhenRefreshFails(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()
	cache := newMemoryGridCache()
	svc.cache = cache

	_, err := svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "70"})
	require.NoError(t, err)

	cache.failSet = true
	_, err = svc.SetCell(ctx, testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "80"})
	require.NoError(t, err)
	require.Len(t, cache.invalidated, 1)
	assert.Equal(t, gradeGridCacheKey(testStudentID, testYear), cache.invalidated[0])

	calls := store.getCall
	view, err := svc.Load(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, calls+1, store.getCall)
	assert.Equal(t, 80, *scoreOf(t, view.Grid, subjectMath, upperOctober))
}

func TestGradeGridServiceUnknownStudent(t *testing.T) {
	svc, _, _ := newGridFixture(models.GradeLevel5thPrimary)

	_, err := svc.Load(context.Background(), "ghost", testYear)
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(err))

	_, err = svc.Load(context.Background(), testStudentID, "2024/2025")
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(err))
}

func TestGradeGridServiceUnknownLevelFallsBack(t *testing.T) {
	svc, _, _ := newGridFixture("")

	view, err := svc.Load(context.Background(), testStudentID, testYear)
	require.NoError(t, err)
	assert.True(t, view.Schema.Fallback)
	assert.Equal(t, models.BandLowerPrimary, view.Schema.Band)
	assert.Len(t, view.Grid.Subjects[0].Cells, 11)
}

func TestGradeGridServiceSaveWithoutGradeLevel(t *testing.T) {
	svc, store, _ := newGridFixture("")
	ctx := context.Background()
	schema, _ := ResolveSchema("")
	column := schema.Columns[0]

	view, err := svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{
		Subjects: []models.SubjectGrade{{Subject: subjectMath, Cells: map[string]models.Cell{column: models.ScoreCell(77)}}},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ConflictStateConsistent, view.ConflictState)
	require.Len(t, store.writes, 1)

	stored, err := store.Get(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, models.GradeLevel(""), stored.RecordedGradeLevel)
	assert.Equal(t, 77, *scoreOf(t, stored, subjectMath, column))

	_, err = svc.Save(ctx, testStudentID, testYear, dto.SaveGradeGridRequest{
		RecordedGradeLevel: models.GradeLevel5thPrimary,
		Subjects:           []models.SubjectGrade{{Subject: subjectMath, Cells: map[string]models.Cell{}}},
	})
	assert.Equal(t, appErrors.ErrConflictBlocked.Code, errorCode(err))
}

func TestGradeGridServiceSaveClampsNumbersBeyondIntRange(t *testing.T) {
	svc, store, _ := newGridFixture(models.GradeLevel5thPrimary)
	ctx := context.Background()

	body := `{"recorded_grade_level":"` + string(models.GradeLevel5thPrimary) + `","subjects":[{"subject":"` + subjectMath +
		`","cells":{"` + upperOctober + `":10000000000000000000,"` + upperMidYear + `":-10000000000000000000,"` + upperFinalExam + `":1e400}}]}`
	var req dto.SaveGradeGridRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	_, err := svc.Save(ctx, testStudentID, testYear, req)
	require.NoError(t, err)

	stored, err := store.Get(ctx, testStudentID, testYear)
	require.NoError(t, err)
	assert.Equal(t, 100, *scoreOf(t, stored, subjectMath, upperOctober))
	assert.Equal(t, 0, *scoreOf(t, stored, subjectMath, upperMidYear))
	assert.Equal(t, 100, *scoreOf(t, stored, subjectMath, upperFinalExam))
}

func TestGradeGridServiceLogsFailedCacheInvalidation(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	store := newMemoryGridStore()
	students := &memoryStudents{students: map[string]models.Student{
		testStudentID: {ID: testStudentID, GradeLevel: models.GradeLevel5thPrimary, Active: true},
	}}
	cache := newMemoryGridCache()
	cache.failSet = true
	cache.invalidateErr = errors.New("redis down")
	svc := NewGradeGridService(store, students, cache, time.Minute, nil, nil, zap.New(core))

	_, err := svc.SetCell(context.Background(), testStudentID, testYear, dto.SetCellRequest{Subject: subjectMath, Column: upperOctober, Value: "60"})
	require.NoError(t, err)

	entries := logs.FilterMessage("stale grade grid may remain cached").All()
	require.Len(t, entries, 1)
	assert.Equal(t, gradeGridCacheKey(testStudentID, testYear), entries[0].ContextMap()["key"])
}
