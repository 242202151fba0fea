// Package core provides money parsing and rate conversion utilities.
//
// Amounts and rates are decimals so cashback sums stay exact; rates are
// fractions internally and percentages at the input boundary.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// ParseAmount converts user input such as "12.34" or "12,34" into a
// positive decimal amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("0")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// RateFromPercent clamps a percentage to [0,100] and returns it as a fraction.
func RateFromPercent(percent decimal.Decimal) decimal.Decimal {
	switch {
	case percent.IsNegative():
		percent = decimal.Zero
	case percent.GreaterThan(hundred):
		percent = hundred
	}
	return percent.Div(hundred)
}

// ClampRate bounds a fraction to [0,1].
func ClampRate(rate decimal.Decimal) decimal.Decimal {
	switch {
	case rate.IsNegative():
		return decimal.Zero
	case rate.GreaterThan(one):
		return one
	}
	return rate
}

// Percent returns a fractional rate as a percentage for display.
func Percent(rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(hundred)
}
