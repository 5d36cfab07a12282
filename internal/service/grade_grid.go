package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/gradebook-api/internal/models"
	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

// NewGradeGrid builds an empty grid against the schema of level, tagged with level.
func NewGradeGrid(studentID, academicYear string, level models.GradeLevel) *models.GradeGrid {
	schema, subjects := ResolveSchema(level)
	rows := make([]models.SubjectGrade, 0, len(subjects))
	for _, subject := range subjects {
		cells := make(map[string]models.Cell, len(schema.Columns))
		for _, column := range schema.Columns {
			cells[column] = models.Cell{}
		}
		rows = append(rows, models.SubjectGrade{Subject: subject, Cells: cells})
	}
	return &models.GradeGrid{
		StudentID:          studentID,
		AcademicYear:       academicYear,
		RecordedGradeLevel: level,
		Subjects:           rows,
	}
}

// ParseScore turns raw numeric input into a cell. Empty input stays empty; numbers are rounded to
// an integer and clamped into [0,100], including values beyond the float64 range.
func ParseScore(raw string) (models.Cell, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.Cell{}, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if (err != nil && !errors.Is(err, strconv.ErrRange)) || math.IsNaN(f) {
		return models.Cell{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %q is not a number", raw))
	}
	return models.ScoreCell(models.ClampScore(f)), nil
}

// SetCell returns a copy of grid with one cell replaced. The notes column keeps raw text verbatim;
// every other column goes through ParseScore.
func SetCell(grid *models.GradeGrid, subject, column, raw string) (*models.GradeGrid, error) {
	schema, _ := ResolveSchema(grid.RecordedGradeLevel)
	if !schema.Has(column) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %q is not part of the %s schema", column, schema.Band))
	}
	var cell models.Cell
	if schema.IsNotes(column) {
		cell = models.NoteCell(raw)
	} else {
		parsed, err := ParseScore(raw)
		if err != nil {
			return nil, err
		}
		cell = parsed
	}
	out := grid.Clone()
	row, ok := out.Row(subject)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %q is not graded", subject))
	}
	if row.Cells == nil {
		row.Cells = make(map[string]models.Cell, len(schema.Columns))
	}
	row.Cells[column] = cell
	return out, nil
}

// ResetGrid discards every value and rebuilds the grid against the schema of level.
func ResetGrid(grid *models.GradeGrid, level models.GradeLevel) *models.GradeGrid {
	return NewGradeGrid(grid.StudentID, grid.AcademicYear, level)
}

// DetectConflict compares a stored grid with the student's current grade level. A grid that was
// never stored is always consistent.
func DetectConflict(grid *models.GradeGrid, stored bool, current models.GradeLevel) models.ConflictState {
	if !stored || grid == nil || grid.RecordedGradeLevel == current {
		return models.ConflictStateConsistent
	}
	return models.ConflictStateConflicted
}

// ValidateGridShape checks that every row carries exactly the schema columns of the recorded
// grade level and that rows follow the subject list.
func ValidateGridShape(grid *models.GradeGrid) error {
	schema, subjects := ResolveSchema(grid.RecordedGradeLevel)
	if len(grid.Subjects) != len(subjects) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("expected %d subjects, got %d", len(subjects), len(grid.Subjects)))
	}
	for i, row := range grid.Subjects {
		if row.Subject != subjects[i] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %q out of order", row.Subject))
		}
		if len(row.Cells) != len(schema.Columns) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %q has %d columns, schema has %d", row.Subject, len(row.Cells), len(schema.Columns)))
		}
		for column, cell := range row.Cells {
			if !schema.Has(column) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %q is not part of the %s schema", column, schema.Band))
			}
			if !schema.IsNotes(column) && cell.Note != "" {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %q only accepts scores", column))
			}
			if cell.Score != nil && (*cell.Score < models.MinScore || *cell.Score > models.MaxScore) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("score %d out of range", *cell.Score))
			}
			if schema.IsNotes(column) && cell.Score != nil {
				return appErrors.Clone(appErrors.ErrValidation, "notes column only accepts text")
			}
		}
	}
	return nil
}

// ProjectForPrint keeps the selected columns of every row, ordered as in the schema regardless of
// selection order. The grid is not modified.
func ProjectForPrint(grid *models.GradeGrid, selected []string) (*models.PrintTable, error) {
	if len(selected) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select at least one column to print")
	}
	schema, _ := ResolveSchema(grid.RecordedGradeLevel)
	wanted := make(map[string]struct{}, len(selected))
	for _, column := range selected {
		if !schema.Has(column) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("column %q is not part of the %s schema", column, schema.Band))
		}
		wanted[column] = struct{}{}
	}
	columns := make([]string, 0, len(wanted))
	for _, column := range schema.Columns {
		if _, ok := wanted[column]; ok {
			columns = append(columns, column)
		}
	}
	rows := make([]models.PrintRow, 0, len(grid.Subjects))
	for _, row := range grid.Subjects {
		values := make([]string, len(columns))
		for i, column := range columns {
			values[i] = row.Cells[column].String()
		}
		rows = append(rows, models.PrintRow{Subject: row.Subject, Values: values})
	}
	return &models.PrintTable{Columns: columns, Rows: rows}, nil
}
