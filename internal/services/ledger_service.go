package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/sheets"
)

// Notifier announces committed transactions. Failures are logged and never
// fail the append.
type Notifier interface {
	PublishTransactionAppended(ctx context.Context, tx core.Transaction) error
}

// Options configure a LedgerService.
type Options struct {
	Streams       []ledger.Stream
	BudgetCeiling decimal.Decimal // non-positive disables budget tracking
	RecentLimit   int
	MonthOrder    []time.Month
	Notifier      Notifier
	Logger        *log.Logger
	Now           func() time.Time
}

// LedgerService runs the read-aggregate(-append) cycle over a store. It keeps
// no ledger between calls: every operation loads a fresh copy.
type LedgerService struct {
	store    sheets.LedgerStore
	streams  []ledger.Stream
	ceiling  decimal.Decimal
	recent   int
	order    []time.Month
	notifier Notifier
	logger   *log.Logger
	now      func() time.Time
}

func NewLedgerService(store sheets.LedgerStore, opts Options) *LedgerService {
	s := &LedgerService{
		store:    store,
		streams:  opts.Streams,
		ceiling:  opts.BudgetCeiling,
		recent:   opts.RecentLimit,
		order:    opts.MonthOrder,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		now:      opts.Now,
	}
	if s.recent <= 0 {
		s.recent = 10
	}
	if len(s.order) == 0 {
		s.order = core.CanonicalMonths
	}
	if s.logger == nil {
		s.logger = log.New(log.DefaultConfig())
	}
	s.logger = s.logger.WithComponent(log.ComponentLedger)
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Snapshot is one freshly loaded ledger.
type Snapshot struct {
	Ledger    ledger.Ledger
	Available bool // false when the store could not be read
	Dropped   int  // malformed rows skipped while normalizing
}

// Snapshot loads and normalizes the ledger. A store failure is logged and
// yields an empty ledger with Available=false, so aggregations still work.
func (s *LedgerService) Snapshot(ctx context.Context) Snapshot {
	rows, err := s.store.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Ledger store unavailable, using empty ledger",
			log.FieldOperation, log.OpLoad, log.FieldError, err)
		return Snapshot{Available: false}
	}
	l, dropped := ledger.Normalize(rows)
	for _, d := range dropped {
		s.logger.WarnContext(ctx, "Dropped malformed row", log.FieldError, d)
	}
	s.logger.DebugContext(ctx, "Ledger loaded", log.FieldRows, l.Len(), log.FieldDropped, len(dropped))
	return Snapshot{Ledger: l, Available: true, Dropped: len(dropped)}
}

// Dashboard is everything the overview page shows.
type Dashboard struct {
	Period            core.Period
	Available         bool
	Balances          []ledger.StreamBalance
	TotalIncome       decimal.Decimal
	TotalExpense      decimal.Decimal
	MonthIncome       decimal.Decimal
	MonthExpense      decimal.Decimal
	Budget            *ledger.BudgetStatus // nil when budget tracking is disabled
	IncomeByCategory  []ledger.CategoryAmount
	ExpenseByCategory []ledger.CategoryAmount
	Recent            []core.Transaction
	Count             int
	Dropped           int
}

// Dashboard aggregates balances, totals and the budget for now's month.
func (s *LedgerService) Dashboard(ctx context.Context, now time.Time) Dashboard {
	snap := s.Snapshot(ctx)
	l := snap.Ledger
	period := core.NewDate(now.Year(), now.Month(), now.Day()).Period()
	inMonth := ledger.InPeriod(period)

	d := Dashboard{
		Period:            period,
		Available:         snap.Available,
		Balances:          ledger.Balances(l, s.streams),
		TotalIncome:       ledger.SumByPredicate(l, ledger.KindIs(core.Income)),
		TotalExpense:      ledger.SumByPredicate(l, ledger.KindIs(core.Expense)),
		MonthIncome:       ledger.SumByPredicate(l, ledger.And(ledger.KindIs(core.Income), inMonth)),
		MonthExpense:      ledger.SumByPredicate(l, ledger.And(ledger.KindIs(core.Expense), inMonth)),
		IncomeByCategory:  ledger.SumByCategory(l, ledger.KindIs(core.Income)),
		ExpenseByCategory: ledger.SumByCategory(l, ledger.KindIs(core.Expense)),
		Recent:            newestFirst(l.Transactions(), s.recent),
		Count:             l.Len(),
		Dropped:           snap.Dropped,
	}

	status, err := ledger.EvaluateBudget(l, period, s.ceiling)
	switch {
	case err == nil:
		d.Budget = &status
	case errors.Is(err, core.ErrInvalidConfig):
		s.logger.DebugContext(ctx, "Budget tracking disabled", log.FieldError, err)
	default:
		s.logger.WarnContext(ctx, "Budget evaluation failed", log.FieldError, err)
	}
	return d
}

// RecapView is the year recap plus the years that have data.
type RecapView struct {
	ledger.YearRecap
	Years     []int
	Available bool
}

// Recap returns the zero-filled month-by-month recap of year.
func (s *LedgerService) Recap(ctx context.Context, year int) RecapView {
	snap := s.Snapshot(ctx)
	return RecapView{
		YearRecap: ledger.RecapYear(snap.Ledger, year, s.order),
		Years:     ledger.Years(snap.Ledger),
		Available: snap.Available,
	}
}

// History returns every transaction, newest first.
func (s *LedgerService) History(ctx context.Context) ([]core.Transaction, bool) {
	snap := s.Snapshot(ctx)
	return newestFirst(snap.Ledger.Transactions(), 0), snap.Available
}

// TransactionInput is an unparsed entry from a form, JSON body or flags.
type TransactionInput struct {
	Date     string `json:"date"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note"`
}

// ValidationError reports the input field that failed to parse.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Parse validates the input. An empty date means today.
func (in TransactionInput) Parse(today time.Time) (core.Transaction, error) {
	var date core.Date
	if strings.TrimSpace(in.Date) == "" {
		date = core.NewDate(today.Year(), today.Month(), today.Day())
	} else {
		d, err := core.ParseDate(in.Date)
		if err != nil {
			return core.Transaction{}, &ValidationError{Field: "date", Err: err}
		}
		date = d
	}
	kind, err := core.ParseKind(in.Kind)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: "kind", Err: err}
	}
	amount, err := core.ParseAmount(in.Amount)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: "amount", Err: err}
	}
	tx := core.NewTransaction(date, kind, in.Category, amount, in.Note)
	if tx.Category == "" {
		return core.Transaction{}, &ValidationError{Field: "category", Err: core.ErrEmptyCategory}
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, &ValidationError{Field: "note", Err: err}
	}
	return tx, nil
}

// AddTransaction validates the input, appends it to a freshly loaded ledger
// and saves the whole ledger back. It refuses to save when the store could
// not be read, since that would replace the stored ledger with one row.
// Rows that failed to normalize are not written back.
// Two concurrent appends can still race; the last save wins.
func (s *LedgerService) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	tx, err := in.Parse(s.now())
	if err != nil {
		return core.Transaction{}, err
	}

	snap := s.Snapshot(ctx)
	if !snap.Available {
		return core.Transaction{}, fmt.Errorf("append: %w", core.ErrUnavailable)
	}

	next, err := ledger.Append(snap.Ledger, tx)
	if err != nil {
		return core.Transaction{}, &ValidationError{Field: "amount", Err: err}
	}
	if snap.Dropped > 0 {
		s.logger.WarnContext(ctx, "Saving ledger discards malformed rows",
			log.FieldOperation, log.OpAppend, log.FieldDropped, snap.Dropped)
	}
	if err := s.store.Save(ctx, next); err != nil {
		s.logger.Fail(ctx, "Failed to save ledger", err, log.FieldOperation, log.OpSave)
		return core.Transaction{}, fmt.Errorf("save ledger: %w", err)
	}

	fields := log.NewFields().WithTransaction(tx).WithOperation(log.OpAppend)
	s.logger.InfoContext(ctx, "Transaction appended", fields.ToSlice()...)

	if s.notifier != nil {
		if err := s.notifier.PublishTransactionAppended(ctx, tx); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish transaction notification",
				log.FieldOperation, log.OpPublish, log.FieldError, err)
		}
	}
	return tx, nil
}

// Ready probes the store, using its health check when it has one.
func (s *LedgerService) Ready(ctx context.Context) error {
	if hc, ok := s.store.(sheets.HealthChecker); ok {
		return hc.Ping(ctx)
	}
	_, err := s.store.Load(ctx)
	return err
}

// Now returns the service clock.
func (s *LedgerService) Now() time.Time {
	return s.now()
}

// newestFirst orders by date descending; same-day entries keep the most
// recently appended first. limit <= 0 returns everything.
func newestFirst(txs []core.Transaction, limit int) []core.Transaction {
	type indexed struct {
		tx  core.Transaction
		pos int
	}
	items := make([]indexed, len(txs))
	for i, tx := range txs {
		items[i] = indexed{tx, i}
	}
	sort.Slice(items, func(a, b int) bool {
		if !items[a].tx.Date.Equal(items[b].tx.Date.Time) {
			return items[a].tx.Date.After(items[b].tx.Date.Time)
		}
		return items[a].pos > items[b].pos
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	out := make([]core.Transaction, len(items))
	for i, it := range items {
		out[i] = it.tx
	}
	return out
}
