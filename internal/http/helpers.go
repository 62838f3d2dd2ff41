package http

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.Indonesian)

// percent renders a 0..1 ratio as a whole percentage.
func percent(ratio decimal.Decimal) int {
	return int(ratio.Shift(2).Round(0).IntPart())
}

// titleLabel capitalizes a free-text category for display.
func titleLabel(s string) string {
	return titler.String(strings.TrimSpace(s))
}

// parseYear reads ?year=, falling back to def when missing or invalid.
func parseYear(query url.Values, def int) int {
	if v := strings.TrimSpace(query.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil && y > 0 {
			return y
		}
	}
	return def
}

// sanitizeInput removes control characters except tab, newline and
// carriage return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
