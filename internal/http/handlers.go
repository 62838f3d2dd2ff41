package http

import (
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"saldo/internal/core"
	"saldo/internal/ledger"
	"saldo/internal/log"
	"saldo/internal/services"
)

const unavailableMessage = "Ledger storage is unavailable; figures may be incomplete."

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		log.FromContext(r.Context()).Fail(r.Context(), "Template execution failed", err,
			log.FieldOperation, log.OpRender, "template", name)
	}
}

type indexData struct {
	services.Dashboard
	Today      string
	Categories map[string][]string
	Notice     string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	now := s.svc.Now()
	d := s.svc.Dashboard(r.Context(), now)
	data := indexData{
		Dashboard:  d,
		Today:      now.Format(time.DateOnly),
		Categories: services.CategoryOptions(),
	}
	if !d.Available {
		data.Notice = unavailableMessage
	}
	s.render(w, r, "dashboard.html", data)
}

func (s *Server) handleOverviewPartial(w http.ResponseWriter, r *http.Request) {
	d := s.svc.Dashboard(r.Context(), s.svc.Now())
	s.render(w, r, "overview", d)
}

func (s *Server) handleRecapPartial(w http.ResponseWriter, r *http.Request) {
	year := parseYear(r.URL.Query(), s.svc.Now().Year())
	s.render(w, r, "recap", s.svc.Recap(r.Context(), year))
}

type historyData struct {
	Transactions []core.Transaction
	Available    bool
}

func (s *Server) handleHistoryPartial(w http.ResponseWriter, r *http.Request) {
	txs, ok := s.svc.History(r.Context())
	s.render(w, r, "history", historyData{Transactions: txs, Available: ok})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		if wantsJSON(r, p) || isJSONContent(r) {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed request body"})
			return
		}
		ErrorResponse(http.StatusBadRequest, "Malformed request").Write(w)
		return
	}
	asJSON := wantsJSON(r, p)

	tx, err := s.svc.AddTransaction(r.Context(), p.TransactionInput())
	if err != nil {
		status, msg, field := classifyError(err)
		if status >= 500 {
			log.FromContext(r.Context()).Fail(r.Context(), "Append transaction failed", err, log.FieldOperation, log.OpAppend)
		}
		if asJSON {
			writeJSON(w, status, apiError{Error: msg, Field: field})
			return
		}
		ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
		return
	}

	if asJSON {
		writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
		return
	}
	NewHTMXResponse().
		TriggerTransactionAppended(tx.Year, int(tx.Month)).
		TriggerFormReset().
		TriggerDashboardRefresh().
		TriggerSuccessNotification("Transaction saved").
		BodyHTML(successFragment(tx)).
		Write(w)
}

// classifyError maps service errors to a status, a user message and the
// offending field.
func classifyError(err error) (int, string, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, "Invalid " + verr.Field, verr.Field
	case errors.Is(err, core.ErrUnavailable):
		return http.StatusServiceUnavailable, "Ledger storage is unavailable, try again later", ""
	default:
		return http.StatusInternalServerError, "Could not save the transaction", ""
	}
}

func isJSONContent(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

func successFragment(tx core.Transaction) string {
	return `<div class="success">Saved ` + template.HTMLEscapeString(tx.Kind.String()) + ` ` +
		template.HTMLEscapeString(core.FormatRupiah(tx.Amount)) +
		` (` + template.HTMLEscapeString(tx.Category) + `) on ` + tx.Date.String() + `</div>`
}

func (s *Server) handleDashboardJSON(w http.ResponseWriter, r *http.Request) {
	d := s.svc.Dashboard(r.Context(), s.svc.Now())
	writeJSON(w, http.StatusOK, toDashboardDTO(d))
}

func (s *Server) handleRecapJSON(w http.ResponseWriter, r *http.Request) {
	year := parseYear(r.URL.Query(), s.svc.Now().Year())
	writeJSON(w, http.StatusOK, toRecapDTO(s.svc.Recap(r.Context(), year)))
}

func (s *Server) handleHistoryJSON(w http.ResponseWriter, r *http.Request) {
	txs, ok := s.svc.History(r.Context())
	out := historyDTO{Available: ok, Transactions: make([]transactionDTO, len(txs))}
	for i, tx := range txs {
		out.Transactions[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCategoriesJSON(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, services.CategoryOptions())
}

// JSON bodies carry amounts as fixed two-decimal strings.

type transactionDTO struct {
	Date     string `json:"date"`
	Kind     string `json:"kind"`
	Category string `json:"category"`
	Amount   string `json:"amount"`
	Note     string `json:"note,omitempty"`
	Month    string `json:"month"`
	Year     int    `json:"year"`
}

func toTransactionDTO(tx core.Transaction) transactionDTO {
	return transactionDTO{
		Date:     tx.Date.String(),
		Kind:     tx.Kind.String(),
		Category: tx.Category,
		Amount:   core.FormatAmount(tx.Amount),
		Note:     tx.Note,
		Month:    tx.MonthName(),
		Year:     tx.Year,
	}
}

type historyDTO struct {
	Available    bool             `json:"available"`
	Transactions []transactionDTO `json:"transactions"`
}

type balanceDTO struct {
	Name    string `json:"name"`
	Seed    string `json:"seed"`
	Balance string `json:"balance"`
}

type categoryDTO struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type budgetDTO struct {
	Ceiling     string `json:"ceiling"`
	Spent       string `json:"spent"`
	Remaining   string `json:"remaining"`
	Utilization string `json:"utilization"`
	Exceeded    bool   `json:"exceeded"`
}

type dashboardDTO struct {
	Period            string           `json:"period"`
	Available         bool             `json:"available"`
	Balances          []balanceDTO     `json:"balances"`
	TotalIncome       string           `json:"total_income"`
	TotalExpense      string           `json:"total_expense"`
	MonthIncome       string           `json:"month_income"`
	MonthExpense      string           `json:"month_expense"`
	Budget            *budgetDTO       `json:"budget"`
	IncomeByCategory  []categoryDTO    `json:"income_by_category"`
	ExpenseByCategory []categoryDTO    `json:"expense_by_category"`
	Recent            []transactionDTO `json:"recent"`
	Count             int              `json:"count"`
	Dropped           int              `json:"dropped"`
}

func toCategoryDTOs(in []ledger.CategoryAmount) []categoryDTO {
	out := make([]categoryDTO, len(in))
	for i, c := range in {
		out[i] = categoryDTO{Name: c.Name, Amount: core.FormatAmount(c.Amount)}
	}
	return out
}

func toDashboardDTO(d services.Dashboard) dashboardDTO {
	out := dashboardDTO{
		Period:            d.Period.String(),
		Available:         d.Available,
		Balances:          make([]balanceDTO, len(d.Balances)),
		TotalIncome:       core.FormatAmount(d.TotalIncome),
		TotalExpense:      core.FormatAmount(d.TotalExpense),
		MonthIncome:       core.FormatAmount(d.MonthIncome),
		MonthExpense:      core.FormatAmount(d.MonthExpense),
		IncomeByCategory:  toCategoryDTOs(d.IncomeByCategory),
		ExpenseByCategory: toCategoryDTOs(d.ExpenseByCategory),
		Recent:            make([]transactionDTO, len(d.Recent)),
		Count:             d.Count,
		Dropped:           d.Dropped,
	}
	for i, b := range d.Balances {
		out.Balances[i] = balanceDTO{Name: b.Name, Seed: core.FormatAmount(b.Seed), Balance: core.FormatAmount(b.Balance)}
	}
	for i, tx := range d.Recent {
		out.Recent[i] = toTransactionDTO(tx)
	}
	if d.Budget != nil {
		out.Budget = &budgetDTO{
			Ceiling:     core.FormatAmount(d.Budget.Ceiling),
			Spent:       core.FormatAmount(d.Budget.Spent),
			Remaining:   core.FormatAmount(d.Budget.Remaining),
			Utilization: d.Budget.Utilization.StringFixed(4),
			Exceeded:    d.Budget.Exceeded,
		}
	}
	return out
}

type monthDTO struct {
	Month   string `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

type recapDTO struct {
	Year      int        `json:"year"`
	Available bool       `json:"available"`
	Years     []int      `json:"years"`
	Months    []monthDTO `json:"months"`
	Total     monthDTO   `json:"total"`
}

func toRecapDTO(v services.RecapView) recapDTO {
	out := recapDTO{
		Year:      v.Year,
		Available: v.Available,
		Years:     v.Years,
		Months:    make([]monthDTO, len(v.Months)),
		Total:     toMonthDTO("Total", v.Total),
	}
	if out.Years == nil {
		out.Years = []int{}
	}
	for i, m := range v.Months {
		out.Months[i] = toMonthDTO(m.Month.String(), m.KindTotals)
	}
	return out
}

func toMonthDTO(label string, t ledger.KindTotals) monthDTO {
	return monthDTO{
		Month:   label,
		Income:  core.FormatAmount(t.Income),
		Expense: core.FormatAmount(t.Expense),
		Net:     core.FormatAmount(t.Net()),
	}
}
