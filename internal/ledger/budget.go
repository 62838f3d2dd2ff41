package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// BudgetStatus summarises one month of expense spending against a ceiling.
type BudgetStatus struct {
	Period      core.Period
	Ceiling     decimal.Decimal
	Spent       decimal.Decimal
	Remaining   decimal.Decimal // never negative
	Utilization decimal.Decimal // in [0, 1]
	Exceeded    bool
}

// MonthlySpend sums the expenses booked in year/month.
func MonthlySpend(l Ledger, p core.Period) decimal.Decimal {
	return SumByPredicate(l, And(KindIs(core.Expense), InPeriod(p)))
}

// BudgetUtilization returns spent/ceiling for the month, clamped to [0, 1].
// A non-positive ceiling is a configuration error.
func BudgetUtilization(l Ledger, p core.Period, ceiling decimal.Decimal) (decimal.Decimal, error) {
	if !ceiling.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: budget ceiling must be positive, got %s", core.ErrInvalidConfig, ceiling)
	}
	return clampUnit(MonthlySpend(l, p).Div(ceiling)), nil
}

// EvaluateBudget computes the full budget status for the month.
func EvaluateBudget(l Ledger, p core.Period, ceiling decimal.Decimal) (BudgetStatus, error) {
	if !ceiling.IsPositive() {
		return BudgetStatus{}, fmt.Errorf("%w: budget ceiling must be positive, got %s", core.ErrInvalidConfig, ceiling)
	}
	spent := MonthlySpend(l, p)
	remaining := ceiling.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	util := clampUnit(spent.Div(ceiling))
	return BudgetStatus{
		Period:      p,
		Ceiling:     ceiling,
		Spent:       spent,
		Remaining:   remaining,
		Utilization: util,
		Exceeded:    util.GreaterThanOrEqual(decimal.NewFromInt(1)),
	}, nil
}

func clampUnit(d decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	switch {
	case d.IsNegative():
		return decimal.Zero
	case d.GreaterThan(one):
		return one
	default:
		return d
	}
}
