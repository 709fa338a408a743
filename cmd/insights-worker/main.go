package main

import (
	"context"
	"errors"
	"os"
	"time"

	"budgetinsights/internal/cache"
	"budgetinsights/internal/cli"
	"budgetinsights/internal/log"
	"budgetinsights/internal/services"
	"budgetinsights/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	cfg, logger, err := cli.LoadConfig(log.ComponentWorker)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Starting insights-worker",
		"backend", cfg.DataBackend,
		"interval", cfg.EvaluationInterval,
		"frequency", cfg.EvaluationFrequency)

	store, err := cli.OpenBackend(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err)
		os.Exit(1)
	}
	defer store.Close()

	amqpClient, err := cli.ConnectAMQP(cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	svc, err := cli.NewInsightService(cfg, store.Backend, amqpClient, logger)
	if err != nil {
		logger.Error("Failed to initialize insight service", log.FieldError, err)
		os.Exit(1)
	}

	cacheManager := cache.NewManager(logger)
	cacheManager.Register(svc.CategoryCache())
	cacheManager.StartCleanup(cfg.CategoryCacheTTL)
	defer cacheManager.Stop()

	frequency, err := services.ParseFrequency(cfg.EvaluationFrequency)
	if err != nil {
		logger.Error("Invalid evaluation frequency", log.FieldError, err)
		os.Exit(1)
	}
	insightWorker := worker.NewInsightWorker(
		svc,
		store.Backend,
		services.DefaultTrigger(cfg.NewTransactionTrigger, frequency),
		cfg.EvaluationBatchSize,
		logger,
	)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// On startup, evaluate categories whose messages arrived while we were down
	logger.Info("Performing startup evaluation check...")
	if err := insightWorker.StartupCheck(ctx); err != nil {
		logger.Error("Failed startup evaluation check", log.FieldError, err)
		// Don't exit - continue with normal operation
	}

	if amqpClient != nil {
		go func() {
			err := amqpClient.ConsumeTransactionRecorded(ctx, insightWorker.HandleTransactionRecorded)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("Skipping AMQP message consumption - relying on periodic sweeps")
	}

	// Periodic sweep for missed messages and interval triggers
	ticker := time.NewTicker(cfg.EvaluationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-done
			logger.Info("Worker shutdown complete")
			return
		case <-ticker.C:
			if _, err := insightWorker.ProcessDueCategories(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Periodic sweep failed", log.FieldError, err)
			}
		}
	}
}
