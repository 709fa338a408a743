package log

import (
	"context"
	"log/slog"
	"time"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// WithContext returns a copy of ctx carrying logger
func WithContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger provides domain-specific structured logging methods
type StructuredLogger struct {
	logger *Logger
}

// NewStructuredLogger creates a new structured logger
func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{
		logger: logger,
	}
}

// LogInsightsGenerated logs the outcome of one category evaluation
func (sl *StructuredLogger) LogInsightsGenerated(ctx context.Context, userID, categoryID, month string, generated, stored int, elapsed time.Duration) {
	fields := NewFields().
		WithUser(userID).
		WithCategory(categoryID, "").
		WithMonth(month).
		WithOperation(OpGenerate).
		With(FieldCount, generated).
		With("stored", stored).
		With(FieldDuration, elapsed.Milliseconds())

	sl.logger.InfoContext(ctx, "Category evaluated", fields.ToSlice()...)
}

// LogInsightStored logs a newly persisted insight
func (sl *StructuredLogger) LogInsightStored(ctx context.Context, id, userID, categoryID, insightType string, priority int) {
	fields := NewFields().
		WithUser(userID).
		WithCategory(categoryID, "").
		WithInsight(id, insightType, priority).
		WithOperation(OpPersist)

	sl.logger.InfoContext(ctx, "Insight stored", fields.ToSlice()...)
}

// LogCategoryFault logs a category whose data could not be evaluated.
// Faults are isolated to the category; processing continues.
func (sl *StructuredLogger) LogCategoryFault(ctx context.Context, userID, categoryID string, err error, errorType string) {
	fields := NewFields().
		WithUser(userID).
		WithCategory(categoryID, "").
		WithOperation(OpEvaluate).
		WithError(err).
		WithErrorType(errorType)

	sl.logger.WarnContext(ctx, "Category evaluation failed", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	allFields := fields.
		WithError(err).
		WithOperation(operation)

	sl.logger.ErrorContext(ctx, msg, allFields.ToSlice()...)
}

// Logger returns the underlying logger
func (sl *StructuredLogger) Logger() *Logger {
	return sl.logger
}
