package core

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Cents constructs a Money from an integer number of cents.
func Cents(c int64) Money {
	return Money{Cents: c}
}

// ParseDecimalToCents converts a decimal amount string to a positive number
// of cents. Both "12.34" and "12,34" are accepted; anything past the second
// decimal place is rounded half-up:
//
//	ParseDecimalToCents("12.345") -> 1234
//	ParseDecimalToCents("12.346") -> 1235
//
// Signed, zero, and malformed inputs return ErrInvalidAmount.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" || s[0] == '+' || s[0] == '-' {
		return 0, ErrInvalidAmount
	}

	whole, frac, _ := strings.Cut(s, ".")
	if strings.Contains(frac, ".") {
		return 0, ErrInvalidAmount
	}
	if whole == "" {
		whole = "0"
	}
	for _, r := range whole + frac {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxUnits = (1<<63 - 1) / 100
	if units > maxUnits {
		return 0, ErrInvalidAmount
	}

	var cents int64
	if len(frac) > 0 {
		cents = int64(frac[0]-'0') * 10
	}
	if len(frac) > 1 {
		cents += int64(frac[1] - '0')
	}
	if len(frac) > 2 && frac[2] >= '5' {
		cents++
	}

	total := units*100 + cents
	if total <= 0 {
		return 0, ErrInvalidAmount
	}
	return total, nil
}

// Add returns the sum of two amounts.
func (m Money) Add(other Money) Money {
	return Money{Cents: m.Cents + other.Cents}
}

// Units returns the amount in currency units for display. Calculations
// must stay in cents to avoid floating-point drift.
func (m Money) Units() float64 {
	return float64(m.Cents) / 100.0
}

// String renders the amount as a plain two-decimal string, e.g. "12.34".
func (m Money) String() string {
	sign := ""
	c := m.Cents
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}
