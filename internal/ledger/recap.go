package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// KindTotals holds the income and expense sums of a bucket.
type KindTotals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Of returns the total for kind k.
func (t KindTotals) Of(k core.Kind) decimal.Decimal {
	if k == core.Income {
		return t.Income
	}
	return t.Expense
}

// Net is income minus expense.
func (t KindTotals) Net() decimal.Decimal {
	return t.Income.Sub(t.Expense)
}

func (t KindTotals) add(tx core.Transaction) KindTotals {
	switch tx.Kind {
	case core.Income:
		t.Income = t.Income.Add(tx.Amount)
	case core.Expense:
		t.Expense = t.Expense.Add(tx.Amount)
	}
	return t
}

func (t KindTotals) plus(o KindTotals) KindTotals {
	return KindTotals{Income: t.Income.Add(o.Income), Expense: t.Expense.Add(o.Expense)}
}

// PeriodTotals is one (year, month) bucket.
type PeriodTotals struct {
	Period core.Period
	KindTotals
}

// MonthRecap is a month slot of a yearly recap.
type MonthRecap struct {
	Month time.Month
	KindTotals
}

// YearRecap is a year's totals laid out over a fixed month order.
type YearRecap struct {
	Year   int
	Months []MonthRecap
	Total  KindTotals
}

// GroupByPeriodAndKind sums amounts per (year, month) and kind. Only periods
// with at least one transaction appear; the result is chronological.
func GroupByPeriodAndKind(l Ledger) []PeriodTotals {
	idx := map[core.Period]int{}
	var groups []PeriodTotals
	for _, tx := range l.txs {
		p := tx.Period()
		i, ok := idx[p]
		if !ok {
			i = len(groups)
			idx[p] = i
			groups = append(groups, PeriodTotals{Period: p, KindTotals: zeroTotals()})
		}
		groups[i].KindTotals = groups[i].KindTotals.add(tx)
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a].Period.Before(groups[b].Period) })
	return groups
}

// Reindex lays grouped totals out per year over order, zero-filling months
// without transactions. Every year present in groups yields exactly
// len(order) months; months missing from order are left out.
func Reindex(groups []PeriodTotals, order []time.Month) []YearRecap {
	byYear := map[int]map[time.Month]KindTotals{}
	var years []int
	for _, g := range groups {
		m, ok := byYear[g.Period.Year]
		if !ok {
			m = map[time.Month]KindTotals{}
			byYear[g.Period.Year] = m
			years = append(years, g.Period.Year)
		}
		m[g.Period.Month] = m[g.Period.Month].plus(g.KindTotals)
	}
	sort.Ints(years)

	out := make([]YearRecap, 0, len(years))
	for _, y := range years {
		out = append(out, layoutYear(y, byYear[y], order))
	}
	return out
}

// RecapYear returns the recap of a single year, zero-filled when the ledger
// has nothing in it.
func RecapYear(l Ledger, year int, order []time.Month) YearRecap {
	for _, r := range Reindex(GroupByPeriodAndKind(l), order) {
		if r.Year == year {
			return r
		}
	}
	return layoutYear(year, nil, order)
}

// Years lists the distinct years present in the ledger, ascending.
func Years(l Ledger) []int {
	seen := map[int]bool{}
	var years []int
	for _, tx := range l.txs {
		if !seen[tx.Year] {
			seen[tx.Year] = true
			years = append(years, tx.Year)
		}
	}
	sort.Ints(years)
	return years
}

func layoutYear(year int, months map[time.Month]KindTotals, order []time.Month) YearRecap {
	r := YearRecap{Year: year, Months: make([]MonthRecap, 0, len(order)), Total: zeroTotals()}
	for _, m := range order {
		t, ok := months[m]
		if !ok {
			t = zeroTotals()
		}
		r.Months = append(r.Months, MonthRecap{Month: m, KindTotals: t})
		r.Total = r.Total.plus(t)
	}
	return r
}

func zeroTotals() KindTotals {
	return KindTotals{Income: decimal.Zero, Expense: decimal.Zero}
}
