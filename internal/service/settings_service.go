package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type settingsRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

var printHeaderKeys = []string{models.SettingSchoolName, models.SettingManagerName}

// SettingsService exposes the school settings printed on grade sheets.
type SettingsService struct {
	repo      settingsRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo settingsRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger}
}

// PrintHeader returns the school and manager names. Missing keys come back empty.
func (s *SettingsService) PrintHeader(ctx context.Context) (*dto.PrintHeader, error) {
	items, err := s.repo.ListByKeys(ctx, printHeaderKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load print header")
	}
	header := &dto.PrintHeader{}
	for _, item := range items {
		switch item.Key {
		case models.SettingSchoolName:
			header.SchoolName = item.Value
		case models.SettingManagerName:
			header.ManagerName = item.Value
		}
	}
	return header, nil
}

// UpdatePrintHeader replaces both print header values.
func (s *SettingsService) UpdatePrintHeader(ctx context.Context, req dto.UpdatePrintHeaderRequest, actorID string) (*dto.PrintHeader, error) {
	req.SchoolName = strings.TrimSpace(req.SchoolName)
	req.ManagerName = strings.TrimSpace(req.ManagerName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid print header payload")
	}
	var updatedBy *string
	if actorID != "" {
		updatedBy = &actorID
	}
	items := []models.Configuration{
		{Key: models.SettingSchoolName, Value: req.SchoolName, UpdatedBy: updatedBy},
		{Key: models.SettingManagerName, Value: req.ManagerName, UpdatedBy: updatedBy},
	}
	if err := s.repo.BulkUpsert(ctx, items); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update print header")
	}
	s.logger.Info("print header updated", zap.String("actor_id", actorID))
	return &dto.PrintHeader{SchoolName: req.SchoolName, ManagerName: req.ManagerName}, nil
}
