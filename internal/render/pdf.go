package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

type rgb struct{ r, g, b int }

var (
	accent   = rgb{26, 64, 102}
	subtle   = rgb{50, 50, 50}
	muted    = rgb{90, 90, 90}
	ruleGrey = rgb{200, 200, 200}
)

// PDF writes q as an A4 quote document. All text is transliterated to
// Latin-1 first, so unsupported characters never fail the render.
func PDF(q Quote, w io.Writer) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetTitle(Latin1(fmt.Sprintf("%s %d", q.Brand, q.Number)), false)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 38)
	pdf.SetTextColor(accent.r, accent.g, accent.b)
	pdf.CellFormat(0, 20, Latin1(q.Brand), "", 1, "", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.SetTextColor(subtle.r, subtle.g, subtle.b)
	pdf.CellFormat(0, 10, Subtitle, "", 1, "", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.SetY(20)
	pdf.CellFormat(0, 5, fmt.Sprintf("PROJEKT-NR: %d", q.Number), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 5, Latin1(q.Date), "", 1, "R", false, 0, "")

	pdf.SetDrawColor(accent.r, accent.g, accent.b)
	pdf.SetLineWidth(1.5)
	pdf.Line(20, 55, 190, 55)

	pdf.SetY(65)
	pdf.SetFont("Arial", "B", 11)
	pdf.SetTextColor(0, 0, 0)
	heading := fmt.Sprintf("PROJEKT: %s | KUNDE: %s", strings.ToUpper(q.ProjectName), q.Customer)
	pdf.CellFormat(0, 10, Latin1(heading), "", 1, "", false, 0, "")
	pdf.Ln(5)

	// Item table
	pdf.SetFillColor(accent.r, accent.g, accent.b)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 10, " BESCHREIBUNG", "", 0, "", true, 0, "")
	pdf.CellFormat(25, 10, "ANZAHL", "", 0, "C", true, 0, "")
	pdf.CellFormat(25, 10, "PREIS", "", 0, "R", true, 0, "")
	pdf.CellFormat(30, 10, "SUMME ", "", 1, "R", true, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 10)
	pdf.SetDrawColor(ruleGrey.r, ruleGrey.g, ruleGrey.b)
	pdf.SetLineWidth(0.2)
	for _, line := range q.Lines {
		pdf.CellFormat(90, 12, Latin1(" "+line.Description), "B", 0, "", false, 0, "")
		pdf.CellFormat(25, 12, fmt.Sprintf("%d", line.Quantity), "B", 0, "C", false, 0, "")
		pdf.CellFormat(25, 12, money(line.UnitPrice), "B", 0, "R", false, 0, "")
		pdf.CellFormat(30, 12, money(line.Amount), "B", 1, "R", false, 0, "")
	}

	// Total
	pdf.Ln(15)
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(accent.r, accent.g, accent.b)
	pdf.CellFormat(130, 10, "GESAMTSUMME", "", 0, "R", false, 0, "")
	pdf.SetFont("Arial", "B", 20)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(40, 10, money(q.Total), "", 1, "R", false, 0, "")

	if len(q.Notes) > 0 {
		pdf.Ln(8)
		pdf.SetFont("Arial", "I", 9)
		pdf.SetTextColor(muted.r, muted.g, muted.b)
		for _, note := range q.Notes {
			pdf.CellFormat(0, 6, Latin1(note.Text()), "", 1, "", false, 0, "")
		}
	}

	return pdf.Output(w)
}
