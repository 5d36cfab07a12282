package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	"github.com/noah-isme/gradebook-api/internal/repository"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type gradeGridStore interface {
	Get(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, error)
	Set(ctx context.Context, grid *models.GradeGrid) error
}

type gradeStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type gradeGridCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Grid write outcomes reported to metrics.
const (
	gridOutcomeSaved   = "saved"
	gridOutcomeReset   = "reset"
	gridOutcomeBlocked = "blocked"
	gridOutcomeFailed  = "failed"
)

type gradeGridKey struct {
	StudentID    string `validate:"required,excludesall=/"`
	AcademicYear string `validate:"required,excludesall=/"`
}

// gridState is what a mutation sees before it writes.
type gridState struct {
	student  *models.Student
	grid     *models.GradeGrid
	stored   bool
	conflict models.ConflictState
}

// GradeGridService loads, edits, saves and resets per-student grade grids.
type GradeGridService struct {
	store     gradeGridStore
	students  gradeStudentReader
	cache     gradeGridCache
	cacheTTL  time.Duration
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeGridService constructs the grade grid service. cache and metrics may be nil.
func NewGradeGridService(store gradeGridStore, students gradeStudentReader, cache gradeGridCache, cacheTTL time.Duration, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeGridService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeGridService{
		store:     store,
		students:  students,
		cache:     cache,
		cacheTTL:  cacheTTL,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Load returns the stored grid for the student and year, or a fresh empty grid built against the
// student's current grade level when nothing was saved yet.
func (s *GradeGridService) Load(ctx context.Context, studentID, academicYear string) (*dto.GradeGridView, error) {
	state, err := s.loadState(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	if state.conflict == models.ConflictStateConflicted {
		s.metrics.RecordGridConflict()
		s.logger.Info("grade grid recorded for a different grade level",
			zap.String("key", state.grid.Key()),
			zap.String("recorded_grade_level", string(state.grid.RecordedGradeLevel)),
			zap.String("current_grade_level", string(state.student.GradeLevel)),
		)
	}
	return s.view(state), nil
}

// Save overwrites the whole grid. Numeric cells are clamped and rounded; cells missing from the
// request are stored empty.
func (s *GradeGridService) Save(ctx context.Context, studentID, academicYear string, req dto.SaveGradeGridRequest) (*dto.GradeGridView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade grid payload")
	}
	state, err := s.loadState(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(state); err != nil {
		return nil, err
	}
	if req.RecordedGradeLevel != state.student.GradeLevel {
		s.metrics.RecordGridSave(gridOutcomeBlocked)
		return nil, appErrors.Clone(appErrors.ErrConflictBlocked, "grade grid must be recorded for the student's current grade level")
	}

	grid, err := normalizeGrid(studentID, academicYear, req)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, grid, gridOutcomeSaved); err != nil {
		return nil, err
	}
	state.grid, state.stored = grid, true
	return s.view(state), nil
}

// SetCell updates one cell of the current grid and saves the result.
func (s *GradeGridService) SetCell(ctx context.Context, studentID, academicYear string, req dto.SetCellRequest) (*dto.GradeGridView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cell payload")
	}
	state, err := s.loadState(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(state); err != nil {
		return nil, err
	}

	updated, err := SetCell(state.grid, req.Subject, req.Column, req.Value)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx, updated, gridOutcomeSaved); err != nil {
		return nil, err
	}
	state.grid, state.stored = updated, true
	return s.view(state), nil
}

// Reset discards every value and rebuilds the grid against the student's current grade level.
// It is the only way out of a conflict short of correcting the student's grade level.
func (s *GradeGridService) Reset(ctx context.Context, studentID, academicYear string, req dto.ResetGradeGridRequest) (*dto.GradeGridView, error) {
	if err := s.validator.Struct(req); err != nil || !req.Confirm {
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "reset discards every entered grade and must be confirmed")
	}
	state, err := s.loadState(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}

	previous := state.grid.RecordedGradeLevel
	reset := ResetGrid(state.grid, state.student.GradeLevel)
	if err := s.persist(ctx, reset, gridOutcomeReset); err != nil {
		return nil, err
	}
	s.metrics.RecordGridReset()
	s.logger.Info("grade grid reset",
		zap.String("key", reset.Key()),
		zap.String("previous_grade_level", string(previous)),
		zap.String("grade_level", string(reset.RecordedGradeLevel)),
	)

	state.grid, state.stored = reset, true
	state.conflict = models.ConflictStateConsistent
	return s.view(state), nil
}

func (s *GradeGridService) loadState(ctx context.Context, studentID, academicYear string) (*gridState, error) {
	if err := s.validator.Struct(gradeGridKey{StudentID: studentID, AcademicYear: academicYear}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student or academic year")
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	grid, stored, err := s.fetch(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	if !stored {
		grid = NewGradeGrid(studentID, academicYear, student.GradeLevel)
	} else if err := ValidateGridShape(grid); err != nil {
		s.logger.Warn("stored grade grid does not match its schema", zap.String("key", grid.Key()), zap.Error(err))
	}
	return &gridState{
		student:  student,
		grid:     grid,
		stored:   stored,
		conflict: DetectConflict(grid, stored, student.GradeLevel),
	}, nil
}

// fetch reads through the cache. Only stored grids are cached.
func (s *GradeGridService) fetch(ctx context.Context, studentID, academicYear string) (*models.GradeGrid, bool, error) {
	key := gradeGridCacheKey(studentID, academicYear)
	if s.cache != nil {
		var cached models.GradeGrid
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	start := time.Now()
	grid, err := s.store.Get(ctx, studentID, academicYear)
	s.metrics.ObserveStoreCall("get", time.Since(start))
	if err != nil {
		if errors.Is(err, repository.ErrGradeGridNotFound) {
			return nil, false, nil
		}
		s.logger.Error("load grade grid", zap.String("key", models.GradeGridKey(studentID, academicYear)), zap.Error(err))
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade grid")
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, grid, s.cacheTTL)
	}
	return grid, true, nil
}

// persist writes the full grid once. A failed write leaves the cache untouched; a failed cache
// refresh after a successful write drops the entry so the next read goes to the store.
func (s *GradeGridService) persist(ctx context.Context, grid *models.GradeGrid, outcome string) error {
	start := time.Now()
	err := s.store.Set(ctx, grid)
	s.metrics.ObserveStoreCall("set", time.Since(start))
	if err != nil {
		s.metrics.RecordGridSave(gridOutcomeFailed)
		s.logger.Error("save grade grid", zap.String("key", grid.Key()), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save grade grid")
	}
	s.metrics.RecordGridSave(outcome)
	if s.cache != nil {
		key := gradeGridCacheKey(grid.StudentID, grid.AcademicYear)
		if err := s.cache.Set(ctx, key, grid, s.cacheTTL); err != nil {
			if invErr := s.cache.Invalidate(ctx, key); invErr != nil {
				s.logger.Warn("stale grade grid may remain cached",
					zap.String("key", key),
					zap.NamedError("refresh_error", err),
					zap.NamedError("invalidate_error", invErr),
				)
			}
		}
	}
	return nil
}

func (s *GradeGridService) ensureEditable(state *gridState) error {
	if state.conflict != models.ConflictStateConflicted {
		return nil
	}
	s.metrics.RecordGridSave(gridOutcomeBlocked)
	return appErrors.Clone(appErrors.ErrConflictBlocked, fmt.Sprintf(
		"grade grid was recorded for %s but the student is now in %s; reset the grid or correct the grade level",
		state.grid.RecordedGradeLevel, state.student.GradeLevel,
	))
}

func (s *GradeGridService) view(state *gridState) *dto.GradeGridView {
	return &dto.GradeGridView{
		Student:           state.student,
		Grid:              state.grid,
		Schema:            SchemaView(state.grid.RecordedGradeLevel),
		CurrentGradeLevel: state.student.GradeLevel,
		ConflictState:     state.conflict,
		Persisted:         state.stored,
	}
}

// normalizeGrid rebuilds a request grid on top of an empty schema-shaped grid so the stored
// document always carries exactly the schema columns.
func normalizeGrid(studentID, academicYear string, req dto.SaveGradeGridRequest) (*models.GradeGrid, error) {
	grid := NewGradeGrid(studentID, academicYear, req.RecordedGradeLevel)
	schema, _ := ResolveSchema(req.RecordedGradeLevel)
	for _, in := range req.Subjects {
		row, ok := grid.Row(in.Subject)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %q is not graded", in.Subject))
		}
		for column, cell := range in.Cells {
			if !schema.Has(column) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %q is not part of the %s schema", column, schema.Band))
			}
			normalized, err := normalizeCell(schema, column, cell)
			if err != nil {
				return nil, err
			}
			row.Cells[column] = normalized
		}
	}
	return grid, nil
}

func normalizeCell(schema models.PeriodSchema, column string, cell models.Cell) (models.Cell, error) {
	if schema.IsNotes(column) {
		if cell.Score != nil {
			return models.NoteCell(cell.String()), nil
		}
		return cell, nil
	}
	if cell.Score != nil {
		return models.ScoreCell(models.ClampScore(float64(*cell.Score))), nil
	}
	return ParseScore(cell.Note)
}

func gradeGridCacheKey(studentID, academicYear string) string {
	return "grade_grid:" + models.GradeGridKey(studentID, academicYear)
}
