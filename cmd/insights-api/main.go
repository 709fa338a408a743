package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgetinsights/internal/cache"
	"budgetinsights/internal/cli"
	apphttp "budgetinsights/internal/http"
	"budgetinsights/internal/log"
)

func main() {
	cli.LoadEnvFile()

	cfg, logger, err := cli.LoadConfig(log.ComponentHTTP)
	if err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

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

	srv := apphttp.NewServer(":"+cfg.HTTPPort, svc, logger, apphttp.Options{
		RequestsPerMinute: cfg.RateLimitPerMinute,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	logger.Info("Starting insights-api", "port", cfg.HTTPPort, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.HTTPPort)
		os.Exit(1)
	}

	<-ctx.Done()
	<-done
	logger.Info("Server stopped gracefully")
}
