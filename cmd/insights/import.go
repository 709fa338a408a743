package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/core"
	"budgetinsights/internal/log"
)

// importRow is one CSV line: the transaction and the category it belongs to.
type importRow struct {
	Category    core.Category
	Transaction core.Transaction
}

func importCmd(a *app) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import [file.csv]",
		Short: "Import transactions from a CSV file",
		Long: `Import transactions from a CSV file with a header row.

Required columns: date (YYYY-MM-DD), category, type (income|expense), amount.
Optional columns: name (category name), notes, currency.

Every imported transaction marks its category for re-evaluation. With AMQP
configured a transaction-recorded message is published for each one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := readTransactions(f, userID)
			if err != nil {
				return err
			}
			if err := a.openStore(); err != nil {
				return err
			}
			if err := a.openAMQP(); err != nil {
				return err
			}

			ctx := cmd.Context()
			seen := make(map[string]bool)
			for i, row := range rows {
				if !seen[row.Category.ID] {
					if err := a.store.Backend.UpsertCategory(ctx, row.Category); err != nil {
						return fmt.Errorf("row %d: %w", i+2, err)
					}
					seen[row.Category.ID] = true
				}

				tx := row.Transaction
				id, err := a.store.Backend.AddTransaction(ctx, tx)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+2, err)
				}
				tx.ID = id

				if a.amqp == nil {
					if _, err := a.store.Backend.IncrementPending(ctx, tx.UserID, tx.CategoryID); err != nil {
						return fmt.Errorf("row %d: %w", i+2, err)
					}
					continue
				}
				if err := a.amqp.PublishTransactionRecorded(ctx, amqp.NewTransactionRecordedMessage(tx)); err != nil {
					// The worker's sweep still finds the category once it is marked pending.
					a.logger.Warn("Failed to publish transaction", log.FieldTransaction, id, log.FieldError, err)
					if _, err := a.store.Backend.IncrementPending(ctx, tx.UserID, tx.CategoryID); err != nil {
						return fmt.Errorf("row %d: %w", i+2, err)
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions into %d categories\n", len(rows), len(seen))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

// readTransactions parses and validates every row before anything is stored,
// so a bad file imports nothing.
func readTransactions(r io.Reader, userID string) ([]importRow, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("empty CSV file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"date", "category", "type", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q", required)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var rows []importRow
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		date, err := core.ParseDate(field(rec, "date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid date %q", line, field(rec, "date"))
		}
		cents, err := core.ParseDecimalToCents(field(rec, "amount"))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid amount %q: %w", line, field(rec, "amount"), err)
		}
		typ := core.TransactionType(strings.ToLower(field(rec, "type")))
		categoryID := field(rec, "category")
		name := field(rec, "name")
		if name == "" {
			name = categoryID
		}

		row := importRow{
			Category: core.Category{ID: categoryID, UserID: userID, Name: name, Type: typ},
			Transaction: core.Transaction{
				UserID:     userID,
				CategoryID: categoryID,
				Amount:     core.Money{Cents: cents},
				Type:       typ,
				Date:       date,
				Notes:      field(rec, "notes"),
				Currency:   field(rec, "currency"),
			},
		}
		if err := row.Category.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := row.Transaction.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
