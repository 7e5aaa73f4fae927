// Package money centralizes monetary rounding. Every amount the system
// stores or returns passes through Round so comparisons always happen on
// 2-decimal values, never on raw sums.
package money

import "github.com/shopspring/decimal"

// Round rounds to 2 decimal places, half away from zero (round-half-up for
// the non-negative amounts this system handles): 1999.995 → 2000.00.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundPtr rounds through a nil-safe pointer.
func RoundPtr(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	r := d.Round(2)
	return &r
}

// Zero is the canonical 0.00.
func Zero() decimal.Decimal { return decimal.Zero.Round(2) }
