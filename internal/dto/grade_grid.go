package dto

import (
	"time"

	"github.com/noah-isme/gradebook-api/internal/models"
)

// GradeSchemaView is the resolver output for one grade level.
type GradeSchemaView struct {
	GradeLevel  models.GradeLevel  `json:"grade_level"`
	Label       string             `json:"label,omitempty"`
	Band        models.GradeBand   `json:"band"`
	Columns     []string           `json:"columns"`
	NotesColumn string             `json:"notes_column"`
	Subjects    models.SubjectList `json:"subjects"`
	Fallback    bool               `json:"fallback"`
}

// GradeGridView is returned by load and every grid mutation.
type GradeGridView struct {
	Student           *models.Student      `json:"student"`
	Grid              *models.GradeGrid    `json:"grid"`
	Schema            GradeSchemaView      `json:"schema"`
	CurrentGradeLevel models.GradeLevel    `json:"current_grade_level"`
	ConflictState     models.ConflictState `json:"conflict_state"`
	Persisted         bool                 `json:"persisted"`
}

// SaveGradeGridRequest carries a complete grid. Cells of numeric columns may be numbers or numeric
// strings; they are clamped into [0,100] before the write. RecordedGradeLevel must equal the
// student's current grade level, which may be empty for students without one.
type SaveGradeGridRequest struct {
	RecordedGradeLevel models.GradeLevel     `json:"recorded_grade_level"`
	Subjects           []models.SubjectGrade `json:"subjects" validate:"required,min=1"`
}

// SetCellRequest updates one cell and saves the grid.
type SetCellRequest struct {
	Subject string `json:"subject" validate:"required"`
	Column  string `json:"column" validate:"required"`
	Value   string `json:"value"`
}

// ResetGradeGridRequest must carry confirm=true.
type ResetGradeGridRequest struct {
	Confirm bool `json:"confirm" validate:"required"`
}

// Print formats.
const (
	PrintFormatPDF = "pdf"
	PrintFormatCSV = "csv"
)

// PrintGradesRequest selects the columns to transmit.
type PrintGradesRequest struct {
	Columns []string `json:"columns" validate:"required,min=1,dive,required"`
	Format  string   `json:"format" validate:"omitempty,oneof=pdf csv"`
}

// PrintGradesResponse points at the rendered artifact.
type PrintGradesResponse struct {
	ArtifactID  string             `json:"artifact_id"`
	Format      string             `json:"format"`
	DownloadURL string             `json:"download_url"`
	ExpiresAt   time.Time          `json:"expires_at"`
	Table       *models.PrintTable `json:"table"`
}
