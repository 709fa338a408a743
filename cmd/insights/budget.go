package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"budgetinsights/internal/core"
)

func budgetCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage category budgets",
	}
	cmd.AddCommand(budgetSetCmd(a))
	return cmd
}

func budgetSetCmd(a *app) *cobra.Command {
	var userID, categoryID, month string

	cmd := &cobra.Command{
		Use:   "set [amount]",
		Short: "Set the monthly budget of a category from the given month onward",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cents, err := core.ParseDecimalToCents(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", args[0], err)
			}
			m, err := parseMonth(month, time.Now())
			if err != nil {
				return err
			}
			if err := a.openService(); err != nil {
				return err
			}

			b := core.Budget{
				UserID:     userID,
				CategoryID: categoryID,
				Month:      m.MonthLabel(),
				Amount:     core.Money{Cents: cents},
			}
			if err := a.svc.SetBudget(cmd.Context(), b); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Budget for %s set to %s from %s\n", categoryID, b.Amount, b.Month)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "Category ID")
	cmd.Flags().StringVarP(&month, "month", "m", "", "First month the budget applies to (YYYY-MM, default current month)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}
