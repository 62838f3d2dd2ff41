package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"saldo/internal/ledger"
	ports "saldo/internal/sheets"

	_ "modernc.org/sqlite"
)

var (
	_ ports.LedgerStore   = (*SQLiteRepository)(nil)
	_ ports.HealthChecker = (*SQLiteRepository)(nil)
)

const (
	selectAllSQL = `SELECT date, category, kind, amount, note, month, year FROM transactions ORDER BY id`
	deleteAllSQL = `DELETE FROM transactions`
	insertSQL    = `INSERT INTO transactions (date, category, kind, amount, note, month, year) VALUES (?, ?, ?, ?, ?, ?, ?)`
)

// SQLiteRepository keeps the ledger in a local SQLite file. Amounts are
// stored as decimal text so no precision is lost.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load implements sheets.LedgerLoader
func (r *SQLiteRepository) Load(ctx context.Context) ([]ledger.RawRow, error) {
	rows, err := r.db.QueryContext(ctx, selectAllSQL)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []ledger.RawRow
	for rows.Next() {
		var (
			date, category, kind, amount, note, month string
			year                                      int64
		)
		if err := rows.Scan(&date, &category, &kind, &amount, &note, &month, &year); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, ledger.RawRow{
			ledger.ColDate:     date,
			ledger.ColCategory: category,
			ledger.ColKind:     kind,
			ledger.ColAmount:   amount,
			ledger.ColNote:     note,
			ledger.ColMonth:    month,
			ledger.ColYear:     year,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// Save implements sheets.LedgerSaver. The table is replaced inside one
// transaction, so readers see either the old or the new ledger.
func (r *SQLiteRepository) Save(ctx context.Context, l ledger.Ledger) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, deleteAllSQL); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range l.Transactions() {
		if _, err = stmt.ExecContext(ctx,
			t.Date.String(), t.Category, t.Kind.String(), t.Amount.StringFixed(2), t.Note, t.MonthName(), t.Year,
		); err != nil {
			return fmt.Errorf("insert transaction dated %s: %w", t.Date, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Ledger saved to SQLite", "rows", l.Len())
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
