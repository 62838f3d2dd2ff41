// Package sheets defines the persistence ports the ledger service talks to
// and the column mapping shared by spreadsheet-shaped stores.
package sheets

import (
	"context"

	"saldo/internal/ledger"
)

// Ports for outbound adapters.
type (
	// LedgerLoader returns every stored row. An unreachable store is an
	// error; an empty store is a nil slice.
	LedgerLoader interface {
		Load(ctx context.Context) ([]ledger.RawRow, error)
	}

	// LedgerSaver replaces the whole stored content with the ledger's rows.
	LedgerSaver interface {
		Save(ctx context.Context, l ledger.Ledger) error
	}

	LedgerStore interface {
		LedgerLoader
		LedgerSaver
	}

	// HealthChecker is implemented by stores that can probe their backend.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}
)
