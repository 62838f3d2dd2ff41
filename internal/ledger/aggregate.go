package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Predicate selects transactions. A nil Predicate matches everything.
type Predicate func(core.Transaction) bool

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount decimal.Decimal
}

func All() Predicate {
	return func(core.Transaction) bool { return true }
}

func KindIs(k core.Kind) Predicate {
	return func(tx core.Transaction) bool { return tx.Kind == k }
}

// CategoryIs matches categories case-insensitively, ignoring surrounding spaces.
func CategoryIs(category string) Predicate {
	category = strings.TrimSpace(category)
	return func(tx core.Transaction) bool {
		return strings.EqualFold(strings.TrimSpace(tx.Category), category)
	}
}

func InPeriod(p core.Period) Predicate {
	return func(tx core.Transaction) bool { return tx.Year == p.Year && tx.Month == p.Month }
}

func InYear(year int) Predicate {
	return func(tx core.Transaction) bool { return tx.Year == year }
}

func And(ps ...Predicate) Predicate {
	return func(tx core.Transaction) bool {
		for _, p := range ps {
			if p != nil && !p(tx) {
				return false
			}
		}
		return true
	}
}

func Or(ps ...Predicate) Predicate {
	return func(tx core.Transaction) bool {
		for _, p := range ps {
			if p == nil || p(tx) {
				return true
			}
		}
		return false
	}
}

func Not(p Predicate) Predicate {
	return func(tx core.Transaction) bool { return p != nil && !p(tx) }
}

// SumByPredicate sums the amounts of matching transactions. It returns zero
// for an empty ledger or when nothing matches.
func SumByPredicate(l Ledger, p Predicate) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range l.txs {
		if p == nil || p(tx) {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum
}

// ComputeBalance is seed + SumByPredicate(l, p).
func ComputeBalance(l Ledger, seed decimal.Decimal, p Predicate) decimal.Decimal {
	return seed.Add(SumByPredicate(l, p))
}

// SumByCategory partitions matching transactions by category, preserving
// first-seen order. Blank categories are grouped under "(uncategorized)".
func SumByCategory(l Ledger, p Predicate) []CategoryAmount {
	byCat := map[string]decimal.Decimal{}
	order := make([]string, 0)
	for _, tx := range l.txs {
		if p != nil && !p(tx) {
			continue
		}
		name := strings.TrimSpace(tx.Category)
		if name == "" {
			name = "(uncategorized)"
		}
		if _, seen := byCat[name]; !seen {
			order = append(order, name)
			byCat[name] = decimal.Zero
		}
		byCat[name] = byCat[name].Add(tx.Amount)
	}
	list := make([]CategoryAmount, 0, len(order))
	for _, name := range order {
		list = append(list, CategoryAmount{Name: name, Amount: byCat[name]})
	}
	return list
}
