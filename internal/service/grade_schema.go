package service

import (
	"github.com/noah-isme/gradebook-api/internal/dto"
	"github.com/noah-isme/gradebook-api/internal/models"
)

// FallbackBand is used for grade levels outside the catalog so grade entry is never blocked.
const FallbackBand = models.BandLowerPrimary

var gradeLevelBands = func() map[models.GradeLevel]models.GradeBand {
	bands := make(map[models.GradeLevel]models.GradeBand, len(models.GradeLevelCatalog))
	for _, info := range models.GradeLevelCatalog {
		bands[info.Level] = info.Band
	}
	return bands
}()

// BandOf returns the band of a grade level and whether the level is in the catalog.
func BandOf(level models.GradeLevel) (models.GradeBand, bool) {
	band, ok := gradeLevelBands[level]
	if !ok {
		return FallbackBand, false
	}
	return band, true
}

// IsKnownGradeLevel reports whether level is part of the catalog.
func IsKnownGradeLevel(level models.GradeLevel) bool {
	_, ok := gradeLevelBands[level]
	return ok
}

// ResolveSchema returns the period schema and subject list for a grade level. Unknown or empty
// levels resolve to the lower-primary schema.
func ResolveSchema(level models.GradeLevel) (models.PeriodSchema, models.SubjectList) {
	band, _ := BandOf(level)
	return models.PeriodSchema{Band: band, Columns: models.BandColumns(band)}, models.GradeSubjects()
}

// GradeLevelLabel returns the printable label of a grade level, or the raw value when unknown.
func GradeLevelLabel(level models.GradeLevel) string {
	for _, info := range models.GradeLevelCatalog {
		if info.Level == level {
			return info.Label
		}
	}
	return string(level)
}

// SchemaView describes the resolved schema of level for API consumers.
func SchemaView(level models.GradeLevel) dto.GradeSchemaView {
	schema, subjects := ResolveSchema(level)
	_, known := BandOf(level)
	view := dto.GradeSchemaView{
		GradeLevel:  level,
		Band:        schema.Band,
		Columns:     schema.Columns,
		NotesColumn: schema.NotesColumn(),
		Subjects:    subjects,
		Fallback:    !known,
	}
	if known {
		view.Label = GradeLevelLabel(level)
	}
	return view
}

// GradeLevelCatalog lists every grade level with its resolved schema.
func GradeLevelCatalog() []dto.GradeSchemaView {
	views := make([]dto.GradeSchemaView, 0, len(models.GradeLevelCatalog))
	for _, info := range models.GradeLevelCatalog {
		views = append(views, SchemaView(info.Level))
	}
	return views
}
