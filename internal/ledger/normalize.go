package ledger

import (
	"fmt"
	"strings"
	"time"

	"saldo/internal/core"
)

// RowError reports a raw row that could not be turned into a transaction.
// It unwraps to core.ErrMalformedRow.
type RowError struct {
	Row int // zero-based index in the input
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Normalize converts raw rows into a ledger. Rows with an unparseable date,
// an unknown kind or a negative amount are dropped and reported; loading
// continues. Missing or non-numeric amounts become zero. Month and year are
// always recomputed from the date, whatever the row carried.
func Normalize(rows []RawRow) (Ledger, []error) {
	var (
		txs     = make([]core.Transaction, 0, len(rows))
		dropped []error
	)
	for i, row := range rows {
		tx, err := normalizeRow(row)
		if err != nil {
			dropped = append(dropped, &RowError{Row: i, Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	return Ledger{txs: txs}, dropped
}

func normalizeRow(row RawRow) (core.Transaction, error) {
	date, err := dateCell(row[ColDate])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: date: %v", core.ErrMalformedRow, err)
	}
	kind, err := core.ParseKind(cellString(row[ColKind]))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: kind: %v", core.ErrMalformedRow, err)
	}
	amount, ok := core.CoerceAmount(row[ColAmount])
	if !ok {
		return core.Transaction{}, fmt.Errorf("%w: amount: negative value %v", core.ErrMalformedRow, row[ColAmount])
	}
	return core.NewTransaction(date, kind, cellString(row[ColCategory]), amount, cellString(row[ColNote])), nil
}

func dateCell(v any) (core.Date, error) {
	switch x := v.(type) {
	case nil:
		return core.Date{}, fmt.Errorf("%w: missing", core.ErrInvalidDate)
	case core.Date:
		if x.IsZero() {
			return core.Date{}, fmt.Errorf("%w: zero", core.ErrInvalidDate)
		}
		return core.NewDate(x.Year(), x.Month(), x.Day()), nil
	case time.Time:
		if x.IsZero() {
			return core.Date{}, fmt.Errorf("%w: zero", core.ErrInvalidDate)
		}
		return core.NewDate(x.Year(), x.Month(), x.Day()), nil
	case float64:
		return core.DateFromSerial(x)
	case int:
		return core.DateFromSerial(float64(x))
	case int64:
		return core.DateFromSerial(float64(x))
	case string:
		return core.ParseDate(x)
	default:
		return core.ParseDate(fmt.Sprint(x))
	}
}

func cellString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
