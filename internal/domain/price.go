package domain

import "github.com/shopspring/decimal"

// PriceDecimals is the rounding policy applied at every write point:
// all prices are rounded to 2 decimal places at submission, and book
// comparisons use direct value equality on the rounded form.
const PriceDecimals = 2

// RoundPrice applies the simulator's single, consistent rounding
// policy. Called once at order construction; never re-rounded later.
func RoundPrice(p decimal.Decimal) decimal.Decimal {
	return p.Round(PriceDecimals)
}

// Price constructs a rounded price from a float64 convenience value.
// Used by config loading and algorithms that compute prices from
// floating-point perturbations.
func Price(f float64) decimal.Decimal {
	return RoundPrice(decimal.NewFromFloat(f))
}
