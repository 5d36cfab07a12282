package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Score bounds of every numeric cell.
const (
	MinScore = 0
	MaxScore = 100
)

// ClampScore bounds f into [MinScore, MaxScore] and rounds it to the nearest integer.
// Infinities saturate at the bounds.
func ClampScore(f float64) int {
	f = math.Max(MinScore, math.Min(MaxScore, f))
	return int(math.Round(f))
}

// Cell holds one grid value: empty, an integer score, or free text for the notes column.
// Empty is distinct from a score of zero.
type Cell struct {
	Score *int   `bson:"score"`
	Note  string `bson:"note,omitempty"`
}

// ScoreCell builds a numeric cell.
func ScoreCell(v int) Cell {
	return Cell{Score: &v}
}

// NoteCell builds a free-text cell.
func NoteCell(text string) Cell {
	return Cell{Note: text}
}

// IsEmpty reports whether nothing has been entered.
func (c Cell) IsEmpty() bool {
	return c.Score == nil && c.Note == ""
}

// String renders the cell for printing.
func (c Cell) String() string {
	if c.Score != nil {
		return strconv.Itoa(*c.Score)
	}
	return c.Note
}

// MarshalJSON writes scores as numbers and everything else (including empty) as strings.
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Score != nil {
		return []byte(strconv.Itoa(*c.Score)), nil
	}
	return json.Marshal(c.Note)
}

// UnmarshalJSON accepts a number, a string or null. Numbers are clamped before conversion.
func (c *Cell) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Cell{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &c.Note)
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return fmt.Errorf("cell value %s: %w", data, err)
	}
	v := ClampScore(f)
	c.Score = &v
	return nil
}

// SubjectGrade is one row of the grid: the subject and its cells keyed by column name.
type SubjectGrade struct {
	Subject string          `json:"subject" bson:"subject"`
	Cells   map[string]Cell `json:"cells" bson:"cells"`
}

// GradeGrid is the report card of one student for one academic year.
type GradeGrid struct {
	StudentID          string         `json:"student_id" bson:"student_id"`
	AcademicYear       string         `json:"academic_year" bson:"academic_year"`
	RecordedGradeLevel GradeLevel     `json:"recorded_grade_level" bson:"recorded_grade_level"`
	Subjects           []SubjectGrade `json:"subjects" bson:"subjects"`
}

// GradeGridKey returns the document path of a grid.
func GradeGridKey(studentID, academicYear string) string {
	return fmt.Sprintf("students/%s/grades/%s", studentID, academicYear)
}

// Key returns the document path of the grid.
func (g *GradeGrid) Key() string {
	return GradeGridKey(g.StudentID, g.AcademicYear)
}

// Row returns the row for subject.
func (g *GradeGrid) Row(subject string) (*SubjectGrade, bool) {
	for i := range g.Subjects {
		if g.Subjects[i].Subject == subject {
			return &g.Subjects[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy so callers never share cell maps.
func (g *GradeGrid) Clone() *GradeGrid {
	if g == nil {
		return nil
	}
	out := *g
	out.Subjects = make([]SubjectGrade, len(g.Subjects))
	for i, row := range g.Subjects {
		cells := make(map[string]Cell, len(row.Cells))
		for col, cell := range row.Cells {
			if cell.Score != nil {
				v := *cell.Score
				cell.Score = &v
			}
			cells[col] = cell
		}
		out.Subjects[i] = SubjectGrade{Subject: row.Subject, Cells: cells}
	}
	return &out
}

// ConflictState tells whether a stored grid still matches the student's grade level.
type ConflictState string

const (
	ConflictStateConsistent ConflictState = "CONSISTENT"
	ConflictStateConflicted ConflictState = "CONFLICTED"
)

// PrintRow is a projected grid row ready for rendering.
type PrintRow struct {
	Subject string   `json:"subject"`
	Values  []string `json:"values"`
}

// PrintTable is a grid projected onto a column selection, in schema order.
type PrintTable struct {
	Columns []string   `json:"columns"`
	Rows    []PrintRow `json:"rows"`
}
