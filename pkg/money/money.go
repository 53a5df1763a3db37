// Package money renders stored minor units as display amounts.
package money

import "github.com/shopspring/decimal"

const minorExponent = 2

// FromMinor returns amount (in minor units) as a decimal in major units.
func FromMinor(amount int64) decimal.Decimal {
	return decimal.New(amount, -minorExponent)
}

// Format renders minor units as a fixed two-place string, e.g. 1250 -> "12.50".
func Format(amount int64) string {
	return FromMinor(amount).StringFixed(minorExponent)
}

// FormatPtr formats optional amounts, returning nil when amount is nil.
func FormatPtr(amount *int64) *string {
	if amount == nil {
		return nil
	}
	s := Format(*amount)
	return &s
}
