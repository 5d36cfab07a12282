package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	UpdateGradeLevel(ctx context.Context, id string, level models.GradeLevel) error
}

// StudentService handles the student directory reads used by grade pages and grade level corrections.
type StudentService struct {
	repo      studentRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.GradeLevel != "" && !IsKnownGradeLevel(filter.GradeLevel) {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown grade level")
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a student by ID.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// UpdateGradeLevel corrects a student's grade level. Stored grade grids keep their recorded level,
// so a grid saved under the old level becomes conflicted until reset or corrected back.
func (s *StudentService) UpdateGradeLevel(ctx context.Context, id string, req dto.UpdateGradeLevelRequest, actorID string) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade level payload")
	}
	if !IsKnownGradeLevel(req.GradeLevel) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown grade level")
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.GradeLevel == req.GradeLevel {
		return current, nil
	}
	if err := s.repo.UpdateGradeLevel(ctx, id, req.GradeLevel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update grade level")
	}
	s.logger.Info("student grade level corrected",
		zap.String("student_id", id),
		zap.String("from", string(current.GradeLevel)),
		zap.String("to", string(req.GradeLevel)),
		zap.String("actor_id", actorID),
	)
	updated := *current
	updated.GradeLevel = req.GradeLevel
	return &updated, nil
}
