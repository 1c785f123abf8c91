// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents; decimal text is converted with
// shopspring/decimal so parsing and formatting never go through float64.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxAmountCents caps a single amount at 100 billion units. Sums of up to
// ~900k such amounts still fit in int64.
const MaxAmountCents int64 = 10_000_000_000_000

var maxCents = decimal.NewFromInt(MaxAmountCents)

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Zero and negative values are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("-5") -> 0, ErrInvalidAmount
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.Sign() <= 0 || cents.GreaterThan(maxCents) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// ParseMoney is ParseDecimalToCents returning a Money.
func ParseMoney(s string) (Money, error) {
	cents, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "1000.00" or "-50.00".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Float64 returns the value in currency units for display. Use cents for
// calculations.
func (m Money) Float64() float64 {
	return float64(m.Cents) / 100.0
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }

// MarshalJSON encodes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. Values
// whose magnitude exceeds MaxAmountCents are rejected rather than wrapped;
// sign and zero are left to Validate.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(data), `"`))
	if s == "" || s == "null" {
		m.Cents = 0
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(maxCents) {
		return ErrInvalidAmount
	}
	m.Cents = cents.IntPart()
	return nil
}
