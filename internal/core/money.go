// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from pt-BR and plain
// numeric strings and for rendering them back in the pt-BR format.
package core

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Tolerance absorbs rounding when comparing monetary values.
var Tolerance = decimal.New(1, -2)

// ParseAmount converts a monetary string to a two-decimal value.
//
// A comma marks the pt-BR format: dots are thousand separators and the comma is the
// decimal separator. Without a comma a single dot is the decimal separator and
// multiple dots are thousand separators. The result is rounded half-up to cents.
// Empty input parses as zero. Negative values are rejected.
//
// Examples:
//   ParseAmount("1.234,56") -> 1234.56, nil
//   ParseAmount("150,5")    -> 150.50, nil
//   ParseAmount("12.34")    -> 12.34, nil
//   ParseAmount("1.234.567") -> 1234567, nil
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrNegativeAmount
	}
	s = strings.TrimPrefix(s, "+")

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		if strings.Count(s, ",") > 1 {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	for _, r := range s {
		if !unicode.IsDigit(r) && r != '.' {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if s == "." {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseSignedAmount is ParseAmount with an optional leading minus sign, for opening
// balances.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	d, err := ParseAmount(strings.TrimPrefix(s, "-"))
	if err != nil {
		if errors.Is(err, ErrNegativeAmount) {
			return decimal.Zero, ErrInvalidAmount
		}
		return decimal.Zero, err
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// FormatAmount renders d as a pt-BR monetary string ("1.234,56").
func FormatAmount(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	out := b.String() + "," + frac
	if neg {
		return "-" + out
	}
	return out
}

// NearlyEqual reports whether a and b differ by at most Tolerance.
func NearlyEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
