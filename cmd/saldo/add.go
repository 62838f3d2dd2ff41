package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"saldo/internal/core"
	"saldo/internal/services"
)

func addCmd() *cobra.Command {
	var in services.TransactionInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a transaction to the ledger",
		Example: `  saldo add --kind expense --category "Food & Drink" --amount 25000,50 --note lunch
  saldo add --date 2024-01-05 --kind income --category Salary --amount 5000000`,
		Args: cobra.NoArgs,
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

			tx, err := a.newService(res).AddTransaction(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s %s (%s) on %s\n",
				tx.Kind, core.FormatRupiah(tx.Amount), tx.Category, tx.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Date, "date", "", "transaction date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&in.Kind, "kind", "", "Income or Expense (Pemasukan/Pengeluaran accepted)")
	cmd.Flags().StringVar(&in.Category, "category", "", "category label")
	cmd.Flags().StringVar(&in.Amount, "amount", "", "positive amount, dot or comma decimals")
	cmd.Flags().StringVar(&in.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("kind")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
