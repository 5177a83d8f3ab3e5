package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimalToCents converts a decimal string to cents.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Extra fractional
// digits round half-up. Signs, zero and malformed input are rejected.
//
//	ParseDecimalToCents("12.34")  -> 1234
//	ParseDecimalToCents("12.345") -> 1235
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return 0, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Round(2).Shift(2)
	if !cents.IsPositive() || cents.GreaterThan(decimal.NewFromInt(maxCents)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

const maxCents = 1<<62 - 1

// ParseMoney parses a positive decimal amount in major units.
func ParseMoney(s string) (Money, error) {
	c, err := ParseDecimalToCents(s)
	if err != nil {
		return Money{}, err
	}
	return Money{Cents: c}, nil
}

// MoneyFromMajor converts a major-unit amount to Money, rounding to cents.
func MoneyFromMajor(v float64) Money {
	return Money{Cents: decimal.NewFromFloat(v).Round(2).Shift(2).IntPart()}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Major returns the amount in major units as a float64 for display and ratios.
// Sums must be done on cents.
func (m Money) Major() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// MarshalJSON encodes the amount as a bare number in major units.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal().String()), nil
}

// UnmarshalJSON accepts a number or a numeric string in major units.
func (m *Money) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Money{}
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("not a number: %s", b)}
	}
	cents := d.Round(2).Shift(2)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("out of range: %s", b)}
	}
	m.Cents = cents.IntPart()
	return nil
}
