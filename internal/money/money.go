// Package money centralizes monetary comparison for the whole system.
//
// Amounts come from human data entry and cross a float boundary at the HTTP
// layer, so exact equality is never reliable. Every financial equality check
// in the codebase goes through ApproxEqual; no other package compares money
// directly.
package money

import "github.com/shopspring/decimal"

// Tolerance is the maximum difference between two amounts still considered
// equal: one cent.
var Tolerance = decimal.RequireFromString("0.01")

// Zero is the canonical zero amount.
var Zero = decimal.Zero

// ApproxEqual reports whether a and b differ by at most Tolerance.
func ApproxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Round normalizes an amount to two decimal places for presentation and
// storage. Intermediate arithmetic keeps full precision.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
