package services

import "saldo/internal/core"

// Suggested categories per kind for entry forms. Any other label is accepted.
var categoryOptions = map[core.Kind][]string{
	core.Income:  {"Salary", "Allowance", "Bonus", "Investment", "Other"},
	core.Expense: {"Food & Drink", "Transport", "Staff Salary", "Shopping", "Bills", "Entertainment", "Other"},
}

// Categories returns a copy of the suggested categories for kind.
func Categories(kind core.Kind) []string {
	return append([]string(nil), categoryOptions[kind]...)
}

// CategoryOptions returns the suggestions for both kinds keyed by kind name.
func CategoryOptions() map[string][]string {
	return map[string][]string{
		core.Income.String():  Categories(core.Income),
		core.Expense.String(): Categories(core.Expense),
	}
}
