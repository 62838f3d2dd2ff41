package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    []ledger.RawRow
	loadErr error
	saveErr error
	saves   int
}

func (f *fakeStore) Load(context.Context) ([]ledger.RawRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]ledger.RawRow(nil), f.rows...), nil
}

func (f *fakeStore) Save(_ context.Context, l ledger.Ledger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	f.rows = l.Rows()
	return nil
}

type fakeNotifier struct {
	err  error
	sent []core.Transaction
}

func (n *fakeNotifier) PublishTransactionAppended(_ context.Context, tx core.Transaction) error {
	n.sent = append(n.sent, tx)
	return n.err
}

var fixedNow = time.Date(2024, time.January, 20, 9, 0, 0, 0, time.UTC)

func row(date, kind, category, amount string) ledger.RawRow {
	return ledger.RawRow{ledger.ColDate: date, ledger.ColKind: kind, ledger.ColCategory: category, ledger.ColAmount: amount}
}

func newService(store *fakeStore, n Notifier) *LedgerService {
	return NewLedgerService(store, Options{
		Streams:       ledger.DefaultStreams(decimal.NewFromInt(1000), decimal.Zero, "Investment"),
		BudgetCeiling: decimal.NewFromInt(100000),
		RecentLimit:   3,
		Notifier:      n,
		Logger:        log.Discard(),
		Now:           func() time.Time { return fixedNow },
	})
}

func TestDashboard(t *testing.T) {
	store := &fakeStore{rows: []ledger.RawRow{
		row("2024-01-05", "Income", "Salary", "5000"),
		row("2024-01-06", "Expense", "Food & Drink", "250.50"),
		row("2024-01-07", "Expense", "Investment", "1000"),
		row("2023-12-31", "Income", "Bonus", "700"),
		row("not a date", "Income", "Broken", "1"),
	}}
	svc := newService(store, nil)

	d := svc.Dashboard(context.Background(), fixedNow)

	require.True(t, d.Available)
	assert.Equal(t, 4, d.Count)
	assert.Equal(t, 1, d.Dropped)
	assert.Equal(t, core.Period{Year: 2024, Month: time.January}, d.Period)
	assert.True(t, d.TotalIncome.Equal(decimal.NewFromInt(5700)))
	assert.True(t, d.MonthIncome.Equal(decimal.NewFromInt(5000)))
	assert.True(t, d.MonthExpense.Equal(decimal.RequireFromString("1250.50")))

	require.Len(t, d.Balances, 2)
	assert.Equal(t, "cash", d.Balances[0].Name)
	assert.True(t, d.Balances[0].Balance.Equal(decimal.RequireFromString("5449.50")), d.Balances[0].Balance.String())
	assert.True(t, d.Balances[1].Balance.Equal(decimal.NewFromInt(1000)))

	require.NotNil(t, d.Budget)
	assert.False(t, d.Budget.Exceeded)

	require.Len(t, d.Recent, 3)
	assert.Equal(t, "Investment", d.Recent[0].Category)
	assert.Equal(t, "Salary", d.Recent[2].Category)
	require.Len(t, d.ExpenseByCategory, 2)
	assert.Equal(t, "Food & Drink", d.ExpenseByCategory[0].Name)
}

func TestDashboard_BudgetDisabled(t *testing.T) {
	svc := NewLedgerService(&fakeStore{}, Options{Logger: log.Discard()})
	d := svc.Dashboard(context.Background(), fixedNow)
	assert.Nil(t, d.Budget)
	assert.True(t, d.Available)
	assert.Empty(t, d.Balances)
}

func TestDashboard_StoreUnavailable(t *testing.T) {
	svc := newService(&fakeStore{loadErr: errors.New("boom")}, nil)
	d := svc.Dashboard(context.Background(), fixedNow)

	assert.False(t, d.Available)
	assert.Zero(t, d.Count)
	assert.True(t, d.TotalIncome.IsZero())
	require.Len(t, d.Balances, 2)
	assert.True(t, d.Balances[0].Balance.Equal(decimal.NewFromInt(1000)), "seed only")
}

func TestAddTransaction(t *testing.T) {
	store := &fakeStore{rows: []ledger.RawRow{row("2024-01-05", "Income", "Salary", "5000")}}
	n := &fakeNotifier{}
	svc := newService(store, n)

	tx, err := svc.AddTransaction(context.Background(), TransactionInput{
		Date: "2024-02-03", Kind: "pengeluaran", Category: " Food ", Amount: "12.345", Note: "lunch",
	})
	require.NoError(t, err)
	assert.Equal(t, core.Expense, tx.Kind)
	assert.Equal(t, "Food", tx.Category)
	assert.Equal(t, time.February, tx.Month)
	assert.Equal(t, 2024, tx.Year)
	assert.Equal(t, "12.35", core.FormatAmount(tx.Amount))

	assert.Equal(t, 1, store.saves)
	require.Len(t, n.sent, 1)

	h, ok := svc.History(context.Background())
	require.True(t, ok)
	require.Len(t, h, 2)
	assert.Equal(t, "Food", h[0].Category)
}

func TestAddTransaction_DefaultsDateToToday(t *testing.T) {
	svc := newService(&fakeStore{}, nil)
	tx, err := svc.AddTransaction(context.Background(), TransactionInput{Kind: "Income", Category: "Gift", Amount: "1"})
	require.NoError(t, err)
	assert.Equal(t, "2024-01-20", tx.Date.String())
}

func TestAddTransaction_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    TransactionInput
		field string
		want  error
	}{
		{"zero amount", TransactionInput{Kind: "Income", Category: "x", Amount: "0"}, "amount", core.ErrInvalidAmount},
		{"negative amount", TransactionInput{Kind: "Income", Category: "x", Amount: "-5"}, "amount", core.ErrInvalidAmount},
		{"bad kind", TransactionInput{Kind: "Transfer", Category: "x", Amount: "5"}, "kind", core.ErrInvalidKind},
		{"bad date", TransactionInput{Date: "31/31/2024", Kind: "Income", Category: "x", Amount: "5"}, "date", core.ErrInvalidDate},
		{"empty category", TransactionInput{Kind: "Income", Category: "  ", Amount: "5"}, "category", core.ErrEmptyCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newService(store, nil)
			_, err := svc.AddTransaction(context.Background(), tt.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, store.saves)
		})
	}
}

func TestAddTransaction_RefusesWhenUnavailable(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("offline")}
	svc := newService(store, nil)

	_, err := svc.AddTransaction(context.Background(), TransactionInput{Kind: "Income", Category: "x", Amount: "5"})
	require.ErrorIs(t, err, core.ErrUnavailable)
	assert.Zero(t, store.saves)
}

func TestAddTransaction_WarnsAboutDiscardedRows(t *testing.T) {
	store := &fakeStore{rows: []ledger.RawRow{
		row("2024-01-05", "Income", "Salary", "5000"),
		row("2024-13-45", "Expense", "Bills", "100"),
	}}
	var buf bytes.Buffer
	svc := NewLedgerService(store, Options{
		Logger: log.New(log.Config{Format: "json", Output: &buf}),
		Now:    func() time.Time { return fixedNow },
	})

	_, err := svc.AddTransaction(context.Background(), TransactionInput{Kind: "Expense", Category: "Food", Amount: "10"})
	require.NoError(t, err)
	assert.Len(t, store.rows, 2)
	assert.Contains(t, buf.String(), "Saving ledger discards malformed rows")
	assert.Contains(t, buf.String(), `"dropped":1`)
}

func TestAddTransaction_SaveError(t *testing.T) {
	n := &fakeNotifier{}
	svc := newService(&fakeStore{saveErr: errors.New("disk full")}, n)

	_, err := svc.AddTransaction(context.Background(), TransactionInput{Kind: "Income", Category: "x", Amount: "5"})
	require.Error(t, err)
	assert.Empty(t, n.sent, "nothing is announced when the save fails")
}

func TestAddTransaction_NotifierFailureIgnored(t *testing.T) {
	store := &fakeStore{}
	svc := newService(store, &fakeNotifier{err: errors.New("broker down")})

	_, err := svc.AddTransaction(context.Background(), TransactionInput{Kind: "Income", Category: "x", Amount: "5"})
	require.NoError(t, err)
	assert.Equal(t, 1, store.saves)
}

func TestRecap(t *testing.T) {
	store := &fakeStore{rows: []ledger.RawRow{
		row("2024-01-05", "Income", "Salary", "100"),
		row("2024-03-05", "Expense", "Food", "40"),
		row("2023-06-01", "Income", "Bonus", "10"),
	}}
	svc := newService(store, nil)

	r := svc.Recap(context.Background(), 2024)
	require.True(t, r.Available)
	assert.Equal(t, 2024, r.Year)
	require.Len(t, r.Months, 12)
	assert.True(t, r.Months[1].Income.IsZero())
	assert.True(t, r.Months[2].Expense.Equal(decimal.NewFromInt(40)))
	assert.True(t, r.Total.Net().Equal(decimal.NewFromInt(60)))
	assert.Equal(t, []int{2023, 2024}, r.Years)
}

func TestNewestFirst(t *testing.T) {
	mk := func(date, cat string) core.Transaction {
		d, err := core.ParseDate(date)
		require.NoError(t, err)
		return core.NewTransaction(d, core.Expense, cat, decimal.NewFromInt(1), "")
	}
	txs := []core.Transaction{mk("2024-01-01", "a"), mk("2024-01-02", "b"), mk("2024-01-02", "c"), mk("2023-12-31", "d")}

	got := newestFirst(txs, 0)
	names := make([]string, len(got))
	for i, tx := range got {
		names[i] = tx.Category
	}
	assert.Equal(t, []string{"c", "b", "a", "d"}, names)
	assert.Len(t, newestFirst(txs, 2), 2)
}

func TestCategories(t *testing.T) {
	c := Categories(core.Income)
	require.NotEmpty(t, c)
	c[0] = "mutated"
	assert.NotEqual(t, "mutated", Categories(core.Income)[0])

	opts := CategoryOptions()
	assert.Contains(t, opts, "Income")
	assert.Contains(t, opts, "Expense")
}
