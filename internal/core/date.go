package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// CanonicalMonths is the display order used by recap views.
var CanonicalMonths = []time.Month{
	time.January, time.February, time.March, time.April,
	time.May, time.June, time.July, time.August,
	time.September, time.October, time.November, time.December,
}

// dateLayouts are tried in order. Month-first slash dates come before
// day-first ones, which only match when the month-first reading is invalid.
var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"1/2/2006",
	"1/2/2006 15:04:05",
	"2/1/2006",
	"02/01/06",
	"2 January 2006",
	"January 2, 2006",
}

// sheetsEpoch is day zero of spreadsheet serial dates.
var sheetsEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseDate parses the date formats found in exported spreadsheets.
// Any time-of-day component is discarded.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t.Year(), t.Month(), t.Day()), nil
		}
	}
	return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
}

// DateFromSerial converts a spreadsheet serial day number into a Date.
func DateFromSerial(serial float64) (Date, error) {
	if math.IsNaN(serial) || math.IsInf(serial, 0) || serial < 1 {
		return Date{}, fmt.Errorf("%w: serial %v", ErrInvalidDate, serial)
	}
	t := sheetsEpoch.AddDate(0, 0, int(math.Floor(serial)))
	return NewDate(t.Year(), t.Month(), t.Day()), nil
}

// ParseMonth accepts a month name ("January", "jan") or number ("1".."12").
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, fmt.Errorf("invalid month: %q", s)
		}
		return time.Month(n), nil
	}
	ls := strings.ToLower(s)
	for _, m := range CanonicalMonths {
		name := strings.ToLower(m.String())
		if ls == name || (len(ls) >= 3 && strings.HasPrefix(name, ls)) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("invalid month: %q", s)
}
