// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer cents. Arithmetic that needs exact decimal
// behaviour (percentages, multipliers, rounding) goes through
// shopspring/decimal via Money.Decimal.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents is the largest amount a single transaction or budget may
// carry: 10 billion currency units. Any realistic history summed at this
// ceiling stays far below the int64 range.
const MaxAmountCents int64 = 1_000_000_000_000

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. The result is always positive cents.
// Returns an error for invalid formats, negative values, or zero amounts.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("12.344") -> 1234, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	// decimal accepts exponents; amounts never carry one
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsInteger() || cents.Cmp(maxCents) > 0 {
		return 0, ErrInvalidAmount
	}
	v := cents.IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

var maxCents = decimal.NewFromInt(MaxAmountCents)

// MoneyFromUnits builds a Money from a whole-unit amount, e.g. 12.5 -> 1250 cents.
func MoneyFromUnits(units float64) Money {
	return Money{Cents: decimal.NewFromFloat(units).Shift(2).Round(0).IntPart()}
}

// Decimal returns the amount in currency units as an exact decimal.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Units returns the amount in currency units as a float64 for display and
// statistics. Use cents or Decimal for sums to avoid floating-point drift.
func (m Money) Units() float64 {
	return m.Decimal().InexactFloat64()
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// String renders the amount as a plain two-decimal number, e.g. "12.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
