package render

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const quoteSheet = "Angebot"

var xlsxHeaders = []string{"Beschreibung", "Anzahl", "Preis (EUR)", "Summe (EUR)"}

// sheetWriter keeps the first excelize error and skips every call after it.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (s *sheetWriter) style(style *excelize.Style) int {
	if s.err != nil {
		return 0
	}
	id, err := s.f.NewStyle(style)
	if err != nil {
		s.err = fmt.Errorf("create style: %w", err)
	}
	return id
}

func (s *sheetWriter) value(cell string, v any) {
	if s.err != nil {
		return
	}
	if err := s.f.SetCellValue(s.sheet, cell, v); err != nil {
		s.err = fmt.Errorf("set %s: %w", cell, err)
	}
}

func (s *sheetWriter) styled(from, to string, style int) {
	if s.err != nil {
		return
	}
	if err := s.f.SetCellStyle(s.sheet, from, to, style); err != nil {
		s.err = fmt.Errorf("style %s:%s: %w", from, to, err)
	}
}

func (s *sheetWriter) width(col int, width float64) {
	if s.err != nil {
		return
	}
	name, err := excelize.ColumnNumberToName(col)
	if err == nil {
		err = s.f.SetColWidth(s.sheet, name, name, width)
	}
	if err != nil {
		s.err = fmt.Errorf("column %d width: %w", col, err)
	}
}

// XLSX writes q as a spreadsheet with the same rows as the PDF quote.
func XLSX(q Quote, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", quoteSheet); err != nil {
		return err
	}
	s := &sheetWriter{f: f, sheet: quoteSheet}

	titleStyle := s.style(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 20, Color: "1A4066"},
	})
	headerStyle := s.style(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1A4066"}},
	})
	moneyStyle := s.style(&excelize.Style{NumFmt: 2})
	totalStyle := s.style(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: 2,
		Border: []excelize.Border{{Type: "top", Color: "000000", Style: 1}},
	})
	noteStyle := s.style(&excelize.Style{
		Font: &excelize.Font{Italic: true, Color: "5A5A5A"},
	})

	s.value("A1", q.Brand)
	s.styled("A1", "A1", titleStyle)
	s.value("A2", Subtitle)
	s.value("D1", fmt.Sprintf("PROJEKT-NR: %d", q.Number))
	s.value("D2", q.Date)
	s.value("A4", "PROJEKT: "+q.ProjectName)
	s.value("C4", "KUNDE: "+q.Customer)

	const headerRow = 6
	for i, h := range xlsxHeaders {
		cell, err := excelize.CoordinatesToCellName(i+1, headerRow)
		if err != nil {
			return err
		}
		s.value(cell, h)
		s.styled(cell, cell, headerStyle)
	}

	row := headerRow + 1
	for _, line := range q.Lines {
		s.value(fmt.Sprintf("A%d", row), line.Description)
		s.value(fmt.Sprintf("B%d", row), line.Quantity)
		s.value(fmt.Sprintf("C%d", row), line.UnitPrice)
		s.value(fmt.Sprintf("D%d", row), line.Amount)
		s.styled(fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), moneyStyle)
		row++
	}

	s.value(fmt.Sprintf("C%d", row), "GESAMTSUMME")
	s.value(fmt.Sprintf("D%d", row), q.Total)
	s.styled(fmt.Sprintf("C%d", row), fmt.Sprintf("D%d", row), totalStyle)

	row += 2
	for _, note := range q.Notes {
		cell := fmt.Sprintf("A%d", row)
		s.value(cell, note.Text())
		s.styled(cell, cell, noteStyle)
		row++
	}

	for i, width := range []float64{40, 10, 14, 16} {
		s.width(i+1, width)
	}
	if s.err != nil {
		return s.err
	}

	_, err := f.WriteTo(w)
	return err
}
