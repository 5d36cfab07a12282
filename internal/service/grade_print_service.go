package service

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/pkg/export"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

const (
	printSheetTitle     = "كشف الدرجات"
	printSubjectHeading = "المادة"
)

type gradeGridLoader interface {
	Load(ctx context.Context, studentID, academicYear string) (*dto.GradeGridView, error)
}

type printHeaderProvider interface {
	PrintHeader(ctx context.Context) (*dto.PrintHeader, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

type printStorage interface {
	Save(filename string, data []byte) (string, error)
	Read(filename string) ([]byte, error)
}

type printSigner interface {
	Generate(artifactID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (artifactID, relPath string, expiresAt time.Time, err error)
}

// PrintArtifact is a rendered grade sheet ready for download.
type PrintArtifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// GradePrintService projects grade grids onto selected columns and renders them for transmission.
type GradePrintService struct {
	grids     gradeGridLoader
	settings  printHeaderProvider
	renderers map[string]documentRenderer
	storage   printStorage
	signer    printSigner
	apiPrefix string
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradePrintService constructs the print service. Nil renderers fall back to the bundled exporters.
func NewGradePrintService(grids gradeGridLoader, settings printHeaderProvider, pdf, csv documentRenderer, storage printStorage, signer printSigner, apiPrefix string, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradePrintService {
	if pdf == nil {
		pdf = export.NewPDFExporter("")
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	apiPrefix = strings.TrimRight(apiPrefix, "/")
	if apiPrefix == "" {
		apiPrefix = "/api/v1"
	}
	return &GradePrintService{
		grids:     grids,
		settings:  settings,
		renderers: map[string]documentRenderer{dto.PrintFormatPDF: pdf, dto.PrintFormatCSV: csv},
		storage:   storage,
		signer:    signer,
		apiPrefix: apiPrefix,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Print renders the selected columns of a student's grid and returns a signed download link.
// The stored grid is never modified.
func (s *GradePrintService) Print(ctx context.Context, studentID, academicYear string, req dto.PrintGradesRequest) (*dto.PrintGradesResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "select at least one column to print")
	}
	format := req.Format
	if format == "" {
		format = dto.PrintFormatPDF
	}

	view, err := s.grids.Load(ctx, studentID, academicYear)
	if err != nil {
		return nil, err
	}
	table, err := ProjectForPrint(view.Grid, req.Columns)
	if err != nil {
		return nil, err
	}

	header, err := s.settings.PrintHeader(ctx)
	if err != nil {
		s.logger.Warn("print header unavailable", zap.Error(err))
		header = &dto.PrintHeader{}
	}

	headers := append([]string{printSubjectHeading}, table.Columns...)
	rows := make([]map[string]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		record := map[string]string{printSubjectHeading: row.Subject}
		for i, column := range table.Columns {
			record[column] = row.Values[i]
		}
		rows = append(rows, record)
	}
	doc := export.Document{
		Title:  printSheetTitle,
		Header: headerLines(header, view, academicYear),
		Data:   export.Dataset{Headers: headers, Rows: rows},
	}

	payload, err := s.renderers[format].Render(doc)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render grade sheet")
	}

	artifactID := uuid.NewString()
	relPath, err := s.storage.Save(path.Join(studentID, fmt.Sprintf("%s_%s.%s", sanitizeFilename(academicYear), artifactID, format)), payload)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store grade sheet")
	}
	token, expiresAt, err := s.signer.Generate(artifactID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	s.metrics.RecordPrintArtifact(format)
	s.logger.Info("grade sheet rendered",
		zap.String("key", view.Grid.Key()),
		zap.String("artifact_id", artifactID),
		zap.String("format", format),
		zap.Int("columns", len(table.Columns)),
	)

	return &dto.PrintGradesResponse{
		ArtifactID:  artifactID,
		Format:      format,
		DownloadURL: fmt.Sprintf("%s/grades/print/%s", s.apiPrefix, token),
		ExpiresAt:   expiresAt,
		Table:       table,
	}, nil
}

// Download resolves a signed token into the stored artifact.
func (s *GradePrintService) Download(ctx context.Context, token string) (*PrintArtifact, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download link")
	}
	data, err := s.storage.Read(relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "grade sheet not found")
	}
	contentType := "application/pdf"
	if strings.HasSuffix(relPath, "."+dto.PrintFormatCSV) {
		contentType = "text/csv; charset=utf-8"
	}
	return &PrintArtifact{Filename: path.Base(relPath), ContentType: contentType, Data: data}, nil
}

func headerLines(header *dto.PrintHeader, view *dto.GradeGridView, academicYear string) []string {
	lines := make([]string, 0, 5)
	if header.SchoolName != "" {
		lines = append(lines, header.SchoolName)
	}
	if header.ManagerName != "" {
		lines = append(lines, "المدير: "+header.ManagerName)
	}
	if view.Student != nil {
		lines = append(lines, "الطالب: "+view.Student.FullName)
	}
	lines = append(lines, "الصف: "+GradeLevelLabel(view.Grid.RecordedGradeLevel))
	lines = append(lines, "العام الدراسي: "+academicYear)
	return lines
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
