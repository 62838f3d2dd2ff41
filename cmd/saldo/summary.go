package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"saldo/internal/core"
	"saldo/internal/services"
)

func summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Print balances, this month's totals and the budget status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			svc := a.newService(res)
			printDashboard(cmd.OutOrStdout(), svc.Dashboard(cmd.Context(), svc.Now()))
			return nil
		},
	}
}

func printDashboard(out io.Writer, d services.Dashboard) {
	fmt.Fprintln(out, titleStyle.Render("Saldo "+d.Period.String()))
	if !d.Available {
		fmt.Fprintln(out, warnStyle.Render("Ledger storage is unavailable; figures may be incomplete."))
	}
	if d.Dropped > 0 {
		fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("%d malformed rows skipped", d.Dropped)))
	}
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, b := range d.Balances {
		fmt.Fprintf(w, "%s\t%s\n", headerStyle.Render(b.Name), core.FormatRupiah(b.Balance))
	}
	fmt.Fprintf(w, "income this month\t%s\n", incomeStyle.Render(core.FormatRupiah(d.MonthIncome)))
	fmt.Fprintf(w, "expense this month\t%s\n", expenseStyle.Render(core.FormatRupiah(d.MonthExpense)))
	_ = w.Flush()

	if b := d.Budget; b != nil {
		line := fmt.Sprintf("budget: %s of %s spent (%s%%), %s left",
			core.FormatRupiah(b.Spent), core.FormatRupiah(b.Ceiling),
			b.Utilization.Shift(2).StringFixed(0), core.FormatRupiah(b.Remaining))
		fmt.Fprintln(out)
		if b.Exceeded {
			fmt.Fprintln(out, warnStyle.Render(line+" EXCEEDED"))
		} else {
			fmt.Fprintln(out, line)
		}
	}

	if len(d.Recent) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, headerStyle.Render("Recent"))
		printTransactions(out, d.Recent)
	}
}

func printTransactions(out io.Writer, txs []core.Transaction) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, tx := range txs {
		amount := core.FormatRupiah(tx.Amount)
		if tx.Kind == core.Income {
			amount = incomeStyle.Render(amount)
		} else {
			amount = expenseStyle.Render("-" + amount)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", tx.Date, tx.Category, amount, mutedStyle.Render(tx.Note))
	}
	_ = w.Flush()
}
