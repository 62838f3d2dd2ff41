// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and for coercing loosely-typed spreadsheet cells into decimals.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseAmount converts a user-entered decimal string to an amount with
// half-up rounding at MinorUnits.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
// Returns ErrInvalidAmount for invalid formats, negative values, or zero.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil (half-up)
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		parts[0] = "0"
	}
	if len(parts) == 2 && parts[1] == "" {
		parts = parts[:1]
	}
	d, err := decimal.NewFromString(strings.Join(parts, "."))
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(MinorUnits)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// CoerceAmount turns a spreadsheet cell into an amount. Missing or
// non-numeric values become zero; the boolean is false only for numeric
// values that are negative, which a ledger never stores.
func CoerceAmount(v any) (decimal.Decimal, bool) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
		return decimal.Zero, true
	case decimal.Decimal:
		d = x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, true
		}
		d = decimal.NewFromFloat(x)
	case float32:
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Zero, true
		}
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case int32:
		d = decimal.NewFromInt32(x)
	case string:
		parsed, ok := parseCell(x)
		if !ok {
			return decimal.Zero, true
		}
		d = parsed
	default:
		return decimal.Zero, true
	}
	if d.IsNegative() {
		return decimal.Zero, false
	}
	return d.Round(MinorUnits), true
}

// parseCell parses cell text such as "100000", "1,5", "Rp 25000.50".
func parseCell(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "Rp")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	if !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount with exactly MinorUnits decimals, the form
// written back to stores.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(MinorUnits)
}

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders an amount for display the way Indonesian banks print
// it, for example "Rp 1.505.000,00".
func FormatRupiah(d decimal.Decimal) string {
	d = d.Round(MinorUnits)
	neg := d.IsNegative()
	d = d.Abs()

	whole := d.Truncate(0)
	cents := d.Sub(whole).Shift(MinorUnits).IntPart()
	frac := strconv.FormatInt(cents, 10)
	if cents < 10 {
		frac = "0" + frac
	}

	s := "Rp " + idPrinter.Sprintf("%d", whole.IntPart()) + "," + frac
	if neg {
		return "-" + s
	}
	return s
}
