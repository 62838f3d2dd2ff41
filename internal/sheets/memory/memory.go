// Package memory is an in-process ledger store, used for local runs and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"saldo/internal/ledger"
	ports "saldo/internal/sheets"
)

var (
	_ ports.LedgerStore   = (*Store)(nil)
	_ ports.HealthChecker = (*Store)(nil)
)

type Store struct {
	mu   sync.Mutex
	rows []ledger.RawRow
}

func New(rows ...ledger.RawRow) *Store {
	return &Store{rows: cloneRows(rows)}
}

// NewFromFile seeds the store from a CSV file with a header row. A missing
// file yields an empty store.
func NewFromFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	values := make([][]any, len(records))
	for i, rec := range records {
		row := make([]any, len(rec))
		for j, cell := range rec {
			row[j] = cell
		}
		values[i] = row
	}
	rows, err := ports.RowsFromValues(values)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return New(rows...), nil
}

func (s *Store) Load(_ context.Context) ([]ledger.RawRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneRows(s.rows), nil
}

func (s *Store) Save(_ context.Context, l ledger.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = l.Rows()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func cloneRows(in []ledger.RawRow) []ledger.RawRow {
	if len(in) == 0 {
		return nil
	}
	out := make([]ledger.RawRow, len(in))
	for i, r := range in {
		c := make(ledger.RawRow, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
