// Package pricing holds the cost rules for quote line items.
//
// All arithmetic runs on decimals and results are rounded to cents once,
// at the moment a line item is created.
package pricing

import (
	"errors"

	"github.com/maxldruck/printcalc/types"
	"github.com/shopspring/decimal"
)

// ErrInvalidQuantity is returned for accessory quantities below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

var gramsPerKg = decimal.NewFromInt(1000)

// PartInput represents the inputs needed to price one printed part.
type PartInput struct {
	PricePerKg  float64
	CostPerHour float64
	WeightGrams float64
	PrintHours  float64
}

// PrintedPartCost returns round(price/1000*grams + rate*hours, 2).
func PrintedPartCost(in PartInput) float64 {
	material := filamentCost(in.PricePerKg, in.WeightGrams)
	machine := decimal.NewFromFloat(in.CostPerHour).Mul(decimal.NewFromFloat(in.PrintHours))
	return cents(material.Add(machine))
}

// AccessoryCost returns round(unitPrice*quantity, 2).
func AccessoryCost(unitPrice float64, quantity int) (float64, error) {
	if quantity < 1 {
		return 0, ErrInvalidQuantity
	}
	return cents(decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))), nil
}

// WorkCost is the informational labour cost. It is zero unless both
// hours and rate are set.
func WorkCost(hours, rate float64) float64 {
	if hours == 0 || rate == 0 {
		return 0
	}
	return cents(decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(rate)))
}

// FailedFilamentCost is the informational cost of wasted filament.
func FailedFilamentCost(pricePerKg, grams float64) float64 {
	return cents(filamentCost(pricePerKg, grams))
}

// ProjectTotal sums the frozen item costs. Work and failed filament
// never contribute.
func ProjectTotal(items []types.ProjectItem) float64 {
	costs := make([]float64, len(items))
	for i, item := range items {
		costs[i] = item.Cost
	}
	return Sum(costs...)
}

// Sum adds monetary amounts and rounds the result to cents.
func Sum(amounts ...float64) float64 {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(decimal.NewFromFloat(a))
	}
	return cents(total)
}

// UnitPrice derives the per-piece price shown on quotes.
func UnitPrice(cost float64, quantity int) float64 {
	if quantity <= 1 {
		return cost
	}
	return cents(decimal.NewFromFloat(cost).Div(decimal.NewFromInt(int64(quantity))))
}

func filamentCost(pricePerKg, grams float64) decimal.Decimal {
	return decimal.NewFromFloat(pricePerKg).Div(gramsPerKg).Mul(decimal.NewFromFloat(grams))
}

// cents rounds half away from zero on the exact decimal value, so 0.145
// becomes 0.15 regardless of its binary float representation.
func cents(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
