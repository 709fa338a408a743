// Package cli provides the initialization shared by cmd/insights and
// cmd/insights-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/backend"
	"budgetinsights/internal/config"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"
	"budgetinsights/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadConfig loads and validates the configuration, then installs the
// configured logger as the process default.
func LoadConfig(component string) (*config.Config, *log.Logger, error) {
	cfg := config.Load()
	logger := cfg.Logger(component)
	log.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		return nil, logger, err
	}
	return cfg, logger, nil
}

// OpenBackend opens the configured store.
func OpenBackend(cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(logger).CreateBackend(bcfg)
}

// ConnectAMQP returns nil without error when no AMQP URL is configured.
func ConnectAMQP(cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - no AMQP_URL provided")
		return nil, nil
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.AMQPInsightsQueue, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, nil
}

// NewInsightService builds the rules engine from the configured thresholds
// and the service around it. client may be nil.
func NewInsightService(cfg *config.Config, repo services.Repository, client *amqp.Client, logger *log.Logger) (*services.InsightService, error) {
	engine, err := insights.NewEngine(cfg.Thresholds())
	if err != nil {
		return nil, fmt.Errorf("invalid rule thresholds: %w", err)
	}

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithConcurrency(cfg.EvaluationConcurrency),
		services.WithCategoryCacheSize(cfg.CategoryCacheSize, cfg.CategoryCacheTTL),
	}
	if client != nil {
		opts = append(opts, services.WithPublisher(client))
	}
	return services.NewInsightService(engine, repo, opts...), nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func()) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup()
			}
			close(finished)
		}()

		select {
		case <-finished:
			logger.Info("Shutdown complete")
		case <-time.After(timeout):
			logger.Warn("Shutdown timeout reached")
		}
		close(done)
	}()

	return ctx, done
}
