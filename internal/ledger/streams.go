package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"saldo/internal/core"
)

// Sign is the direction a matched transaction moves a stream balance.
type Sign int

const (
	Credit Sign = 1
	Debit  Sign = -1
)

// Rule selects transactions for a stream. An empty Kind or Category
// matches any value, but a rule must set at least one of them.
type Rule struct {
	Kind     core.Kind
	Category string
	Sign     Sign
}

func (r Rule) Predicate() Predicate {
	var ps []Predicate
	if r.Kind != "" {
		ps = append(ps, KindIs(r.Kind))
	}
	if strings.TrimSpace(r.Category) != "" {
		ps = append(ps, CategoryIs(r.Category))
	}
	return And(ps...)
}

// Stream is a named balance: a seed plus the signed sums of its rules.
// Rules are summed independently, so a transaction matched by two rules
// counts twice.
type Stream struct {
	Name  string
	Seed  decimal.Decimal
	Rules []Rule
}

// StreamBalance is the evaluated balance of a stream.
type StreamBalance struct {
	Name    string
	Seed    decimal.Decimal
	Balance decimal.Decimal
}

func (s Stream) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: stream name is required", core.ErrInvalidConfig)
	}
	if len(s.Rules) == 0 {
		return fmt.Errorf("%w: stream %q has no rules", core.ErrInvalidConfig, s.Name)
	}
	for i, r := range s.Rules {
		if r.Sign != Credit && r.Sign != Debit {
			return fmt.Errorf("%w: stream %q rule %d: sign must be +1 or -1", core.ErrInvalidConfig, s.Name, i)
		}
		if r.Kind != "" && !r.Kind.IsValid() {
			return fmt.Errorf("%w: stream %q rule %d: kind %q", core.ErrInvalidConfig, s.Name, i, r.Kind)
		}
		if r.Kind == "" && strings.TrimSpace(r.Category) == "" {
			return fmt.Errorf("%w: stream %q rule %d matches every transaction; set a kind or a category", core.ErrInvalidConfig, s.Name, i)
		}
	}
	return nil
}

// Balance evaluates the stream against a ledger.
func (s Stream) Balance(l Ledger) decimal.Decimal {
	bal := s.Seed
	for _, r := range s.Rules {
		sum := SumByPredicate(l, r.Predicate())
		if r.Sign == Debit {
			bal = bal.Sub(sum)
		} else {
			bal = bal.Add(sum)
		}
	}
	return bal
}

// Balances evaluates every stream in order.
func Balances(l Ledger, streams []Stream) []StreamBalance {
	out := make([]StreamBalance, 0, len(streams))
	for _, s := range streams {
		out = append(out, StreamBalance{Name: s.Name, Seed: s.Seed, Balance: s.Balance(l)})
	}
	return out
}

// DefaultStreams returns the two dashboard streams: cash, which gains
// income and loses expenses, and investment, which gains every transfer
// booked under transferCategory. A transfer is also an expense, so it
// leaves cash and lands in investment at the same time.
func DefaultStreams(cashSeed, investmentSeed decimal.Decimal, transferCategory string) []Stream {
	return []Stream{
		{
			Name: "cash",
			Seed: cashSeed,
			Rules: []Rule{
				{Kind: core.Income, Sign: Credit},
				{Kind: core.Expense, Sign: Debit},
			},
		},
		{
			Name: "investment",
			Seed: investmentSeed,
			Rules: []Rule{
				{Category: transferCategory, Sign: Credit},
			},
		},
	}
}
