package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var (
		userID string
		all    bool
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's insights, most urgent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openService(); err != nil {
				return err
			}
			recs, err := a.svc.ListInsights(cmd.Context(), userID, all)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPRIORITY\tMONTH\tCATEGORY\tTYPE\tTITLE")
			for _, r := range recs {
				title := r.Title
				if r.Dismissed {
					title += " (dismissed)"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", r.ID, r.Priority, r.Month, r.CategoryID, r.Type, title)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include dismissed insights")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func dismissCmd(a *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "dismiss [insight-id]",
		Short: "Dismiss an insight so it is not shown or recreated",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.openService(); err != nil {
				return err
			}
			if err := a.svc.DismissInsight(cmd.Context(), userID, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
