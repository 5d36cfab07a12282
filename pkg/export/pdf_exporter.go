package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const unicodeFamily = "gradebook"

// Document is a printable grade sheet: a title, header lines and one table.
type Document struct {
	Title  string
	Header []string
	Data   Dataset
}

// PDFExporter renders grade sheets into a basic tabular PDF.
type PDFExporter struct {
	fontPath string
}

// NewPDFExporter constructs a PDF exporter. fontPath optionally points at a UTF-8 TrueType font;
// without it the core Arial font is used and non-Latin text is transliterated.
func NewPDFExporter(fontPath string) *PDFExporter {
	return &PDFExporter{fontPath: fontPath}
}

// Render creates a PDF document with the title, header lines and table body.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if len(doc.Data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	orientation := "P"
	width := 190.0
	if len(doc.Data.Headers) > 8 {
		orientation = "L"
		width = 277.0
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	family := "Arial"
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if e.fontPath != "" {
		pdf.AddUTF8Font(unicodeFamily, "", e.fontPath)
		pdf.AddUTF8Font(unicodeFamily, "B", e.fontPath)
		family = unicodeFamily
		tr = func(s string) string { return s }
	}
	pdf.AddPage()

	if doc.Title != "" {
		pdf.SetFont(family, "B", 14)
		pdf.CellFormat(0, 10, tr(doc.Title), "", 1, "C", false, 0, "")
	}
	if len(doc.Header) > 0 {
		pdf.SetFont(family, "", 10)
		for _, line := range doc.Header {
			pdf.CellFormat(0, 6, tr(line), "", 1, "R", false, 0, "")
		}
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 8)
	colWidth := width / float64(len(doc.Data.Headers))
	for _, header := range doc.Data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 8)
	for _, row := range doc.Data.Rows {
		for _, header := range doc.Data.Headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
