package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/backend"
	"budgetinsights/internal/cli"
	"budgetinsights/internal/config"
	"budgetinsights/internal/core"
	"budgetinsights/internal/log"
	"budgetinsights/internal/services"
)

var Version = "dev"

// app holds what the subcommands share. Config is loaded for every command;
// the store and AMQP connection only by the commands that need them.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	store  *backend.BackendResult
	amqp   *amqp.Client
	svc    *services.InsightService
}

func main() {
	a := &app{}
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		a.close()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "insights",
		Short:         "Budget insights - rule-based spending insights per category",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, logger, err := cli.LoadConfig(log.ComponentCLI)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(generateCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(dismissCmd(a))
	rootCmd.AddCommand(budgetCmd(a))
	rootCmd.AddCommand(importCmd(a))
	rootCmd.AddCommand(migrateCmd(a))

	return rootCmd
}

func (a *app) openStore() error {
	if a.store != nil {
		return nil
	}
	store, err := cli.OpenBackend(a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.store = store
	return nil
}

// openService opens the store and, when configured, the AMQP connection
// used to publish new insights.
func (a *app) openService() error {
	if a.svc != nil {
		return nil
	}
	if err := a.openStore(); err != nil {
		return err
	}
	if err := a.openAMQP(); err != nil {
		return err
	}
	svc, err := cli.NewInsightService(a.cfg, a.store.Backend, a.amqp, a.logger)
	if err != nil {
		return err
	}
	a.svc = svc
	return nil
}

func (a *app) openAMQP() error {
	if a.amqp != nil {
		return nil
	}
	client, err := cli.ConnectAMQP(a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.amqp = client
	return nil
}

func (a *app) close() {
	if a.amqp != nil {
		a.amqp.Close()
		a.amqp = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Error("Failed to close store", log.FieldError, err)
		}
		a.store = nil
	}
}

// parseMonth parses a YYYY-MM flag value. An empty value means the month
// containing now.
func parseMonth(s string, now time.Time) (core.Date, error) {
	if s == "" {
		return core.DateOf(now), nil
	}
	t, err := time.Parse(core.MonthLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return core.DateOf(t), nil
}
