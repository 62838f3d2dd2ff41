// Package ledger turns a flat list of transactions into balances, budgets
// and month/year bucketed reports. Everything here is pure: loading and
// saving rows is the job of the stores in internal/sheets and
// internal/storage.
package ledger

import (
	"fmt"

	"saldo/internal/core"
)

// Column names of the raw row schema shared by every store.
const (
	ColDate     = "date"
	ColCategory = "category"
	ColKind     = "kind"
	ColAmount   = "amount"
	ColNote     = "note"
	ColMonth    = "month"
	ColYear     = "year"
)

// Schema is the ordered column set of a ledger, known even when it has no rows.
var Schema = []string{ColDate, ColCategory, ColKind, ColAmount, ColNote, ColMonth, ColYear}

// RawRow is a loosely-typed record as returned by a store: cell values are
// strings, numbers, or nil, keyed by the Schema column names.
type RawRow map[string]any

// Ledger is an insertion-ordered, immutable collection of transactions.
// The zero value is an empty ledger.
type Ledger struct {
	txs []core.Transaction
}

// New builds a ledger from already-typed transactions, recomputing each
// one's month and year from its date.
func New(txs ...core.Transaction) Ledger {
	out := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		out[i] = tx.WithDerivedPeriod()
	}
	return Ledger{txs: out}
}

// Len returns the number of transactions.
func (l Ledger) Len() int {
	return len(l.txs)
}

// IsEmpty reports whether the ledger has no transactions.
func (l Ledger) IsEmpty() bool {
	return len(l.txs) == 0
}

// Columns returns the column schema.
func (l Ledger) Columns() []string {
	return append([]string(nil), Schema...)
}

// Transactions returns a copy of the transactions in insertion order.
func (l Ledger) Transactions() []core.Transaction {
	return append([]core.Transaction(nil), l.txs...)
}

// Rows renders the ledger back into raw rows in canonical cell formats.
// Normalize(l.Rows()) reproduces l.
func (l Ledger) Rows() []RawRow {
	rows := make([]RawRow, len(l.txs))
	for i, tx := range l.txs {
		rows[i] = RawRow{
			ColDate:     tx.Date.String(),
			ColCategory: tx.Category,
			ColKind:     tx.Kind.String(),
			ColAmount:   core.FormatAmount(tx.Amount),
			ColNote:     tx.Note,
			ColMonth:    tx.MonthName(),
			ColYear:     tx.Year,
		}
	}
	return rows
}

// Append returns a new ledger with tx added at the end. The receiver is
// left untouched; callers persist the result and reload to observe the
// committed state.
func Append(l Ledger, tx core.Transaction) (Ledger, error) {
	tx = tx.WithDerivedPeriod()
	raw := tx.Amount
	tx.Amount = raw.Round(core.MinorUnits)
	if !tx.Amount.IsPositive() {
		if raw.IsPositive() {
			return l, fmt.Errorf("append: %w: %s rounds to zero at %d decimal places", core.ErrInvalidAmount, raw, core.MinorUnits)
		}
		return l, fmt.Errorf("append: %w: %s", core.ErrInvalidAmount, raw)
	}
	if err := tx.Validate(); err != nil {
		return l, fmt.Errorf("append: %w", err)
	}
	next := make([]core.Transaction, len(l.txs), len(l.txs)+1)
	copy(next, l.txs)
	next = append(next, tx)
	return Ledger{txs: next}, nil
}
