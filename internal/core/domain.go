package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "Income"
	Expense Kind = "Expense"
)

// MinorUnits is the number of decimal places amounts are kept at.
const MinorUnits = 2

type (
	Kind string

	Date struct {
		time.Time
	}

	// Period identifies a calendar month of a given year.
	Period struct {
		Year  int
		Month time.Month
	}

	// Transaction is a single ledger entry. Month and Year are redundant
	// with Date and must always match it; build values through
	// NewTransaction or ledger.Normalize to keep them consistent.
	Transaction struct {
		Date     Date
		Category string
		Kind     Kind
		Amount   decimal.Decimal
		Note     string
		Month    time.Month
		Year     int
	}
)

var (
	ErrMalformedRow   = errors.New("malformed row")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrInvalidKind    = errors.New("invalid kind")
	ErrInvalidDate    = errors.New("invalid date")
	ErrEmptyCategory  = errors.New("empty category")
	ErrPeriodMismatch = errors.New("month/year do not match date")
	ErrUnavailable    = errors.New("store unavailable")
)

// kindAliases maps lower-cased labels to kinds. The Indonesian labels are the
// ones written by the original spreadsheet pages.
var kindAliases = map[string]Kind{
	"income":      Income,
	"pemasukan":   Income,
	"expense":     Expense,
	"pengeluaran": Expense,
}

// ParseKind resolves a free-text label into a Kind.
func ParseKind(s string) (Kind, error) {
	k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

func (k Kind) String() string {
	return string(k)
}

// IsValid reports whether k is Income or Expense.
func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// NewDate creates a new Date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// NewTransaction builds a transaction with its derived month/year set from
// date and the amount rounded to MinorUnits.
func NewTransaction(date Date, kind Kind, category string, amount decimal.Decimal, note string) Transaction {
	return Transaction{
		Date:     date,
		Category: strings.TrimSpace(category),
		Kind:     kind,
		Amount:   amount.Round(MinorUnits),
		Note:     strings.TrimSpace(note),
		Month:    date.Month(),
		Year:     date.Year(),
	}
}

// MonthName returns the calendar month name, e.g. "January".
func (t Transaction) MonthName() string {
	return t.Month.String()
}

// Period returns the (year, month) bucket of the transaction.
func (t Transaction) Period() Period {
	return Period{Year: t.Year, Month: t.Month}
}

// WithDerivedPeriod returns a copy whose Month and Year are recomputed from Date.
func (t Transaction) WithDerivedPeriod() Transaction {
	t.Month = t.Date.Month()
	t.Year = t.Date.Year()
	return t
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, t.Kind)
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Month != t.Date.Month() || t.Year != t.Date.Year() {
		return ErrPeriodMismatch
	}
	return nil
}
