package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"
)

type Config struct {
	// HTTP API
	HTTPPort           string
	RateLimitPerMinute int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// AMQP
	AMQPURL           string
	AMQPExchange      string
	AMQPQueue         string
	AMQPInsightsQueue string

	// Evaluation scheduling
	EvaluationInterval    time.Duration
	EvaluationBatchSize   int
	EvaluationConcurrency int
	NewTransactionTrigger int
	EvaluationFrequency   string

	// Category lookup cache
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Rule thresholds
	SpendingIncreasePercent       float64
	RecommendationMinTransactions int
	RecommendationBuffer          float64
	RecommendationMinAmount       int
	BudgetCloseTolerance          float64
	UnusualMinTransactions        int
	UnusualStdDevMultiple         float64
	PositiveUsagePercent          float64
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:           getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/insights.db"),

		AMQPURL:           getEnv("AMQP_URL", ""),
		AMQPExchange:      getEnv("AMQP_EXCHANGE", "budget"),
		AMQPQueue:         getEnv("AMQP_QUEUE", "transactions_recorded"),
		AMQPInsightsQueue: getEnv("AMQP_INSIGHTS_QUEUE", "insights_generated"),

		EvaluationInterval:    getEnvDuration("EVALUATION_INTERVAL", time.Hour),
		EvaluationBatchSize:   getEnvInt("EVALUATION_BATCH_SIZE", 50),
		EvaluationConcurrency: getEnvInt("EVALUATION_CONCURRENCY", 4),
		NewTransactionTrigger: getEnvInt("NEW_TRANSACTION_TRIGGER", 5),
		EvaluationFrequency:   getEnv("EVALUATION_FREQUENCY", "daily"),

		CategoryCacheSize: getEnvInt("CATEGORY_CACHE_SIZE", 500),
		CategoryCacheTTL:  getEnvDuration("CATEGORY_CACHE_TTL", 10*time.Minute),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		SpendingIncreasePercent:       getEnvFloat("INSIGHT_SPENDING_INCREASE_PERCENT", insights.DefaultSpendingIncreasePercent),
		RecommendationMinTransactions: getEnvInt("INSIGHT_RECOMMENDATION_MIN_TRANSACTIONS", insights.DefaultRecommendationMinTransactions),
		RecommendationBuffer:          getEnvFloat("INSIGHT_RECOMMENDATION_BUFFER", insights.DefaultRecommendationBuffer),
		RecommendationMinAmount:       getEnvInt("INSIGHT_RECOMMENDATION_MIN_AMOUNT", insights.DefaultRecommendationMinAmount),
		BudgetCloseTolerance:          getEnvFloat("INSIGHT_BUDGET_CLOSE_TOLERANCE", insights.DefaultBudgetCloseTolerance),
		UnusualMinTransactions:        getEnvInt("INSIGHT_UNUSUAL_MIN_TRANSACTIONS", insights.DefaultUnusualMinTransactions),
		UnusualStdDevMultiple:         getEnvFloat("INSIGHT_UNUSUAL_STDDEV_MULTIPLE", insights.DefaultUnusualStdDevMultiple),
		PositiveUsagePercent:          getEnvFloat("INSIGHT_POSITIVE_USAGE_PERCENT", insights.DefaultPositiveUsagePercent),
	}

	return cfg
}

// Thresholds returns the rule thresholds carried by the configuration.
func (c *Config) Thresholds() insights.Thresholds {
	return insights.Thresholds{
		SpendingIncreasePercent:       c.SpendingIncreasePercent,
		RecommendationMinTransactions: c.RecommendationMinTransactions,
		RecommendationBuffer:          c.RecommendationBuffer,
		RecommendationMinAmount:       int64(c.RecommendationMinAmount),
		BudgetCloseTolerance:          c.BudgetCloseTolerance,
		UnusualMinTransactions:        c.UnusualMinTransactions,
		UnusualStdDevMultiple:         c.UnusualStdDevMultiple,
		PositiveUsagePercent:          c.PositiveUsagePercent,
	}
}

// Logger builds the application logger from the logging settings.
func (c *Config) Logger(component string) *log.Logger {
	level, _ := log.ParseLevel(c.LogLevel)
	cfg := log.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.LogFormat
	cfg.Component = component
	return log.New(cfg)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.HTTPPort); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number between 1 and 65535", c.HTTPPort))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPInsightsQueue == "" {
			errors = append(errors, "AMQP insights queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.EvaluationInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid evaluation interval %v: must be at least 1 second", c.EvaluationInterval))
	} else if c.EvaluationInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid evaluation interval %v: must be at most 24 hours", c.EvaluationInterval))
	}

	if c.EvaluationBatchSize < 1 || c.EvaluationBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid evaluation batch size %d: must be between 1 and 1000", c.EvaluationBatchSize))
	}
	if c.EvaluationConcurrency < 1 || c.EvaluationConcurrency > 64 {
		errors = append(errors, fmt.Sprintf("invalid evaluation concurrency %d: must be between 1 and 64", c.EvaluationConcurrency))
	}
	if c.NewTransactionTrigger < 1 {
		errors = append(errors, fmt.Sprintf("invalid new transaction trigger %d: must be at least 1", c.NewTransactionTrigger))
	}

	switch c.EvaluationFrequency {
	case "daily", "weekly", "monthly":
	default:
		errors = append(errors, fmt.Sprintf("invalid evaluation frequency '%s': must be daily, weekly or monthly", c.EvaluationFrequency))
	}

	if c.CategoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at least 1", c.CategoryCacheSize))
	}
	if c.CategoryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must be positive", c.CategoryCacheTTL))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if err := c.Thresholds().Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
