package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"budgetinsights/internal/services"
)

func generateCmd(a *app) *cobra.Command {
	var userID, month, categoryID string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Evaluate a user's expense categories and store new insights",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := parseMonth(month, time.Now())
			if err != nil {
				return err
			}
			if err := a.openService(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if categoryID != "" {
				res, err := a.svc.GenerateForCategory(cmd.Context(), userID, categoryID, m)
				if err != nil {
					return err
				}
				printCategoryResult(out, *res)
				return nil
			}

			res, err := a.svc.GenerateForUser(cmd.Context(), userID, m)
			if err != nil {
				return err
			}
			for _, c := range res.Categories {
				printCategoryResult(out, c)
			}
			for _, f := range res.Faults {
				fmt.Fprintf(out, "%s: skipped: %v\n", f.CategoryID, f.Err)
			}
			fmt.Fprintf(out, "%d new insights for %s\n", res.Created(), res.Month)
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	cmd.Flags().StringVarP(&month, "month", "m", "", "Month to evaluate (YYYY-MM, default current month)")
	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "Evaluate only this category")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printCategoryResult(w io.Writer, res services.CategoryResult) {
	created := make(map[string]bool, len(res.Created))
	for _, rec := range res.Created {
		created[string(rec.Type)] = true
	}
	for _, in := range res.Generated {
		marker := " "
		if created[string(in.Type)] {
			marker = "+"
		}
		fmt.Fprintf(w, "%s [%d] %s/%s: %s\n", marker, in.Priority, res.CategoryID, in.Type, in.Title)
	}
}
