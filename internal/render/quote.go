// Package render turns a saved project into a customer-facing price quote.
package render

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maxldruck/printcalc/internal/pricing"
	"github.com/maxldruck/printcalc/types"
)

const (
	DefaultBrand    = "MaxlDruck"
	Subtitle        = "MATERIALPREISLISTE / KALKULATION"
	NoCustomer      = "Kein User"
	NotInTotal      = "(nicht in Gesamtsumme enthalten)"
	projectNoOffset = 1000
	dateLayout      = "02. January 2006"
)

// Quote is the layout-independent content of a price quote.
type Quote struct {
	Brand       string
	Number      int64
	Date        string
	ProjectName string
	Customer    string
	Lines       []Line
	Total       float64
	Notes       []Note
}

// Line is one table row.
type Line struct {
	Description string
	Quantity    int
	UnitPrice   float64
	Amount      float64
}

// Note is an informational cost that is shown but not summed.
type Note struct {
	Label  string
	Amount float64
}

// Text renders the note as a single line.
func (n Note) Text() string {
	return fmt.Sprintf("%s: %s %s", n.Label, money(n.Amount), NotInTotal)
}

// Options carries context that is not stored on the project.
type Options struct {
	Brand string

	// Account is shown as the customer when the project has none.
	Account string

	// Date is printed in the header; zero means now.
	Date time.Time

	// FailedMaterial is the catalog entry for the project's failed
	// filament material. Nil omits the failed filament note.
	FailedMaterial *types.Material
}

// BuildQuote assembles the quote content for p.
func BuildQuote(p types.Project, opts Options) Quote {
	brand := strings.TrimSpace(opts.Brand)
	if brand == "" {
		brand = DefaultBrand
	}
	date := opts.Date
	if date.IsZero() {
		date = time.Now()
	}

	customer := strings.TrimSpace(p.CustomerName)
	if customer == "" {
		customer = strings.TrimSpace(opts.Account)
	}
	if customer == "" {
		customer = NoCustomer
	}

	q := Quote{
		Brand:       brand,
		Number:      p.ID + projectNoOffset,
		Date:        strings.ToUpper(date.Format(dateLayout)),
		ProjectName: p.Name,
		Customer:    customer,
		Lines:       make([]Line, 0, len(p.Items)),
		Total:       pricing.ProjectTotal(p.Items),
	}

	for _, item := range p.Items {
		qty := Quantity(item.Details)
		q.Lines = append(q.Lines, Line{
			Description: item.Name,
			Quantity:    qty,
			UnitPrice:   pricing.UnitPrice(item.Cost, qty),
			Amount:      item.Cost,
		})
	}

	if work := pricing.WorkCost(p.WorkHours, p.WorkRate); work != 0 {
		q.Notes = append(q.Notes, Note{
			Label:  fmt.Sprintf("Arbeitszeit (%s h x %s EUR/h)", number(p.WorkHours), number(p.WorkRate)),
			Amount: work,
		})
	}
	if m := opts.FailedMaterial; m != nil && p.FailedFilamentGrams > 0 {
		cost := pricing.FailedFilamentCost(m.PricePerKg, p.FailedFilamentGrams)
		q.Notes = append(q.Notes, Note{
			Label:  fmt.Sprintf("Fehldrucke (%s g %s)", number(p.FailedFilamentGrams), m.Name),
			Amount: cost,
		})
	}
	return q
}

// Quantity reads the piece count from an item's details. Accessories store
// "<n> Stk"; everything else counts as one.
func Quantity(details string) int {
	if !strings.Contains(details, "Stk") {
		return 1
	}
	fields := strings.Fields(details)
	if len(fields) == 0 {
		return 1
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func money(v float64) string {
	return fmt.Sprintf("%.2f EUR", v)
}

func number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
