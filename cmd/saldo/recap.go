package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"saldo/internal/core"
)

func recapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recap [year]",
		Short: "Print month-by-month income, expense and net for a year",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year := time.Now().Year()
			if len(args) == 1 {
				y, err := strconv.Atoi(args[0])
				if err != nil || y <= 0 {
					return fmt.Errorf("invalid year %q", args[0])
				}
				year = y
			}

			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			res, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer a.closeBackend(res)

			r := a.newService(res).Recap(cmd.Context(), year)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Recap %d", r.Year)))
			if !r.Available {
				fmt.Fprintln(out, warnStyle.Render("Ledger storage is unavailable."))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "month\tincome\texpense\tnet\t")
			for _, m := range r.Months {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", m.Month,
					core.FormatRupiah(m.Income), core.FormatRupiah(m.Expense), core.FormatRupiah(m.Net()))
			}
			fmt.Fprintf(w, "total\t%s\t%s\t%s\t\n",
				core.FormatRupiah(r.Total.Income), core.FormatRupiah(r.Total.Expense), core.FormatRupiah(r.Total.Net()))
			_ = w.Flush()

			if len(r.Years) > 0 {
				fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("years with data: %v", r.Years)))
			}
			return nil
		},
	}
}
