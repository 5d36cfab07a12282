package models

// GradeLevel is a class designation from the school catalog (e.g. "5th Primary").
type GradeLevel string

// GradeBand groups grade levels sharing one report-card layout.
type GradeBand string

const (
	BandLowerPrimary GradeBand = "LOWER_PRIMARY"
	BandUpperPrimary GradeBand = "UPPER_PRIMARY"
	BandSecondary    GradeBand = "SECONDARY"
)

const (
	GradeLevel1stPrimary    GradeLevel = "1st Primary"
	GradeLevel2ndPrimary    GradeLevel = "2nd Primary"
	GradeLevel3rdPrimary    GradeLevel = "3rd Primary"
	GradeLevel4thPrimary    GradeLevel = "4th Primary"
	GradeLevel5thPrimary    GradeLevel = "5th Primary"
	GradeLevel6thPrimary    GradeLevel = "6th Primary"
	GradeLevel1stSecondary  GradeLevel = "1st Secondary"
	GradeLevel2ndSecondary  GradeLevel = "2nd Secondary"
	GradeLevel3rdSecondary  GradeLevel = "3rd Secondary"
	GradeLevel4thScientific GradeLevel = "4th Scientific"
	GradeLevel5thScientific GradeLevel = "5th Scientific"
	GradeLevel6thScientific GradeLevel = "6th Scientific"
	GradeLevel4thLiterary   GradeLevel = "4th Literary"
	GradeLevel5thLiterary   GradeLevel = "5th Literary"
	GradeLevel6thLiterary   GradeLevel = "6th Literary"
)

// NotesColumn is the free-text column closing every period schema.
const NotesColumn = "الملاحظات"

// GradeLevelInfo describes a catalog entry.
type GradeLevelInfo struct {
	Level GradeLevel `json:"level"`
	Label string     `json:"label"`
	Band  GradeBand  `json:"band"`
}

// GradeLevelCatalog lists every grade level in school order with its band. Band membership is a
// fixed table; nothing derives it from the level name.
var GradeLevelCatalog = []GradeLevelInfo{
	{Level: GradeLevel1stPrimary, Label: "الأول الابتدائي", Band: BandLowerPrimary},
	{Level: GradeLevel2ndPrimary, Label: "الثاني الابتدائي", Band: BandLowerPrimary},
	{Level: GradeLevel3rdPrimary, Label: "الثالث الابتدائي", Band: BandLowerPrimary},
	{Level: GradeLevel4thPrimary, Label: "الرابع الابتدائي", Band: BandLowerPrimary},
	{Level: GradeLevel5thPrimary, Label: "الخامس الابتدائي", Band: BandUpperPrimary},
	{Level: GradeLevel6thPrimary, Label: "السادس الابتدائي", Band: BandUpperPrimary},
	{Level: GradeLevel1stSecondary, Label: "الأول المتوسط", Band: BandSecondary},
	{Level: GradeLevel2ndSecondary, Label: "الثاني المتوسط", Band: BandSecondary},
	{Level: GradeLevel3rdSecondary, Label: "الثالث المتوسط", Band: BandSecondary},
	{Level: GradeLevel4thScientific, Label: "الرابع العلمي", Band: BandSecondary},
	{Level: GradeLevel5thScientific, Label: "الخامس العلمي", Band: BandSecondary},
	{Level: GradeLevel6thScientific, Label: "السادس العلمي", Band: BandSecondary},
	{Level: GradeLevel4thLiterary, Label: "الرابع الأدبي", Band: BandSecondary},
	{Level: GradeLevel5thLiterary, Label: "الخامس الأدبي", Band: BandSecondary},
	{Level: GradeLevel6thLiterary, Label: "السادس الأدبي", Band: BandSecondary},
}

// PeriodSchema is the ordered list of grading-period columns for a band.
type PeriodSchema struct {
	Band    GradeBand `json:"band"`
	Columns []string  `json:"columns"`
}

// NotesColumn returns the trailing free-text column.
func (s PeriodSchema) NotesColumn() string {
	if len(s.Columns) == 0 {
		return ""
	}
	return s.Columns[len(s.Columns)-1]
}

// IsNotes reports whether column is the schema's free-text column.
func (s PeriodSchema) IsNotes(column string) bool {
	return column != "" && column == s.NotesColumn()
}

// Has reports whether column belongs to the schema.
func (s PeriodSchema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// SubjectList is the ordered list of report-card subjects.
type SubjectList []string

// Has reports whether subject is part of the list.
func (l SubjectList) Has(subject string) bool {
	for _, s := range l {
		if s == subject {
			return true
		}
	}
	return false
}

// Column spellings follow the printed report cards of each band, including the unhamzated
// "الاول" used on upper-primary cards.
var (
	lowerPrimaryColumns = []string{
		"تشرين الأول", "تشرين الثاني", "كانون الأول", "كانون الثاني", "نصف السنة",
		"شباط", "آذار", "نيسان", "أيار", "النهائي", NotesColumn,
	}
	upperPrimaryColumns = []string{
		"تشرين الاول", "تشرين الثاني", "كانون الاول", "كانون الثاني", "معدل الفصل الاول",
		"نصف السنة", "شباط", "آذار", "نيسان", "أيار", "معدل الفصل الثاني", "السعي السنوي",
		"الامتحان النهائي", "الدرجة النهائية", "الدور الثاني", "الدرجة بعد الدور الثاني", NotesColumn,
	}
	secondaryColumns = []string{
		"معدل الفصل الأول", "نصف السنة", "معدل الفصل الثاني", "السعي السنوي", "الامتحان النهائي",
		"الدرجة النهائية", "الدور الثاني", "الدرجة بعد الدور الثاني", NotesColumn,
	}
	gradeSubjects = []string{
		"التربية الإسلامية", "اللغة العربية", "اللغة الإنكليزية", "الرياضيات", "العلوم",
		"الاجتماعيات", "التربية الأسرية", "التربية الفنية", "التربية الرياضية", "الحاسوب",
	}
)

// BandColumns returns a copy of the canonical column list for a band, or nil for an unknown band.
func BandColumns(band GradeBand) []string {
	var src []string
	switch band {
	case BandLowerPrimary:
		src = lowerPrimaryColumns
	case BandUpperPrimary:
		src = upperPrimaryColumns
	case BandSecondary:
		src = secondaryColumns
	default:
		return nil
	}
	return append([]string(nil), src...)
}

// GradeSubjects returns a copy of the grade-entry subject list.
func GradeSubjects() SubjectList {
	return append(SubjectList(nil), gradeSubjects...)
}
