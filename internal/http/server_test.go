package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/sheets/memory"
)

var testNow = time.Date(2024, time.January, 20, 12, 0, 0, 0, time.UTC)

type brokenStore struct{}

func (brokenStore) Load(context.Context) ([]ledger.RawRow, error) { return nil, errors.New("offline") }
func (brokenStore) Save(context.Context, ledger.Ledger) error     { return errors.New("offline") }

func seededStore() *memory.Store {
	return memory.New(
		ledger.RawRow{ledger.ColDate: "2024-01-05", ledger.ColKind: "Income", ledger.ColCategory: "Salary", ledger.ColAmount: "5000000"},
		ledger.RawRow{ledger.ColDate: "2024-01-06", ledger.ColKind: "Expense", ledger.ColCategory: "Food & Drink", ledger.ColAmount: "25000.50"},
	)
}

func newTestServer(t *testing.T, store interface {
	Load(context.Context) ([]ledger.RawRow, error)
	Save(context.Context, ledger.Ledger) error
}, ceiling int64, writesPerMinute int) *Server {
	t.Helper()
	svc := services.NewLedgerService(store, services.Options{
		Streams:       ledger.DefaultStreams(decimal.NewFromInt(451020), decimal.Zero, "Investment"),
		BudgetCeiling: decimal.NewFromInt(ceiling),
		Logger:        log.Discard(),
		Now:           func() time.Time { return testNow },
	})
	srv := NewServer(":0", svc, log.Discard(), Options{WritesPerMinute: writesPerMinute})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Add transaction")
	assert.Contains(t, body, "Monthly budget")
	assert.Contains(t, body, "Food &amp; Drink")
	assert.NotContains(t, body, unavailableMessage)
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))

	for _, path := range []string{"/healthz", "/readyz", "/static/style.css"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}
}

func TestIndexWhenStoreUnavailable(t *testing.T) {
	srv := newTestServer(t, brokenStore{}, 1505000, 0)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), unavailableMessage)

	rr = do(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPartials(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	for _, path := range []string{"/ui/overview", "/ui/recap?year=2024", "/ui/history"} {
		rr := do(srv, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "text/html", path)
	}

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/ui/recap?year=2024", nil))
	assert.Contains(t, rr.Body.String(), "Recap 2024")
	assert.Contains(t, rr.Body.String(), "December")
}

func TestDashboardJSON(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got dashboardDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.Available)
	assert.Equal(t, "January 2024", got.Period)
	assert.Equal(t, 2, got.Count)
	assert.Equal(t, "5000000.00", got.TotalIncome)
	assert.Equal(t, "25000.50", got.MonthExpense)
	require.Len(t, got.Balances, 2)
	assert.Equal(t, "5426019.50", got.Balances[0].Balance)
	require.NotNil(t, got.Budget)
	assert.False(t, got.Budget.Exceeded)
	assert.Equal(t, "1479999.50", got.Budget.Remaining)
}

func TestDashboardJSON_BudgetDisabled(t *testing.T) {
	srv := newTestServer(t, seededStore(), 0, 0)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"budget":null`)
}

func TestRecapJSON(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/recap?year=2023", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got recapDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, 2023, got.Year)
	require.Len(t, got.Months, 12)
	assert.Equal(t, "0.00", got.Total.Net)
	assert.Equal(t, []int{2024}, got.Years)
}

func TestCreateTransaction_JSON(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader(`{"date":"2024-01-21","kind":"Expense","category":"Transport","amount":"12.345","note":"bus"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(srv, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var tx transactionDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tx))
	assert.Equal(t, "12.35", tx.Amount)
	assert.Equal(t, "January", tx.Month)

	rr = do(srv, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))
	var h historyDTO
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &h))
	require.Len(t, h.Transactions, 3)
	assert.Equal(t, "Transport", h.Transactions[0].Category)
}

func TestCreateTransaction_JSONValidation(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader(`{"kind":"Expense","category":"Transport","amount":"-3"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(srv, req)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var e apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	assert.Equal(t, "amount", e.Field)

	req = httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	rr = do(srv, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateTransaction_Form(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	form := url.Values{"kind": {"Income"}, "category": {"Bonus"}, "amount": {"1500000"}}
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	rr := do(srv, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), "success")
	assert.Contains(t, rr.Body.String(), "2024-01-20")
	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"transaction:appended"`, `"form:reset"`, `"dashboard:refresh"`, `"year":2024`, `"month":1`} {
		assert.Contains(t, trigger, part)
	}
}

func TestCreateTransaction_FormValidation(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)

	form := url.Values{"kind": {"Transfer"}, "category": {"x"}, "amount": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/transactions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := do(srv, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="error"`)
	assert.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)
}

func TestCreateTransaction_Unavailable(t *testing.T) {
	srv := newTestServer(t, brokenStore{}, 1505000, 0)

	req := httptest.NewRequest(http.MethodPost, "/api/transactions",
		strings.NewReader(`{"kind":"Income","category":"x","amount":"1"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := do(srv, req)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCreateTransaction_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)
	rr := do(srv, httptest.NewRequest(http.MethodDelete, "/api/transactions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestCreateTransaction_RateLimited(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 1)

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions",
			strings.NewReader(`{"kind":"Income","category":"x","amount":"1"}`))
		req.Header.Set("Content-Type", "application/json")
		return do(srv, req).Code
	}
	assert.Equal(t, http.StatusCreated, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}

func TestCategoriesJSON(t *testing.T) {
	srv := newTestServer(t, seededStore(), 1505000, 0)
	rr := do(srv, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var got map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.NotEmpty(t, got["Income"])
	assert.NotEmpty(t, got["Expense"])
}

func TestAPI_CORS(t *testing.T) {
	svc := services.NewLedgerService(seededStore(), services.Options{Logger: log.Discard()})
	srv := NewServer(":0", svc, log.Discard(), Options{AllowedOrigins: []string{"https://budget.example"}})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	req := httptest.NewRequest(http.MethodOptions, "/api/transactions", nil)
	req.Header.Set("Origin", "https://budget.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := do(srv, req)
	assert.Equal(t, "https://budget.example", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Origin", "https://evil.example")
	rr = do(srv, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))

	plain := newTestServer(t, seededStore(), 1505000, 0)
	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.Header.Set("Origin", "https://budget.example")
	assert.Empty(t, do(plain, req).Header().Get("Access-Control-Allow-Origin"))
}
