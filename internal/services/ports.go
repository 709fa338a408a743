package services

import (
	"context"
	"time"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
)

// Ports for outbound adapters. Both storage.SQLiteRepository and
// memory.Store satisfy all of the storage ports.
type (
	TransactionReader interface {
		// ListCategoryTransactions returns transactions dated in [from, to),
		// oldest first.
		ListCategoryTransactions(ctx context.Context, userID, categoryID string, from, to core.Date) ([]core.Transaction, error)
	}

	CategoryReader interface {
		GetCategory(ctx context.Context, userID, categoryID string) (core.Category, error)
		ListUserCategories(ctx context.Context, userID string) ([]core.Category, error)
		// GetBudget returns nil when no budget applies to month (YYYY-MM).
		GetBudget(ctx context.Context, userID, categoryID, month string) (*core.Money, error)
	}

	BudgetWriter interface {
		SetBudget(ctx context.Context, b core.Budget) error
	}

	InsightStore interface {
		// SaveInsight deduplicates on user, category, type and month and
		// reports whether a new insight was created.
		SaveInsight(ctx context.Context, rec insights.Record) (insights.Record, bool, error)
		ListInsights(ctx context.Context, userID string, includeDismissed bool) ([]insights.Record, error)
		DismissInsight(ctx context.Context, userID, id string) error
	}

	EvaluationTracker interface {
		IncrementPending(ctx context.Context, userID, categoryID string) (core.EvaluationState, error)
		// RecordEvaluation marks the category evaluated at at and removes
		// seen transactions from its pending count. Transactions counted
		// after the evaluation started stay pending.
		RecordEvaluation(ctx context.Context, userID, categoryID string, at time.Time, seen int) error
		GetEvaluationState(ctx context.Context, userID, categoryID string) (core.EvaluationState, error)
		ListDueCategories(ctx context.Context, before time.Time, limit int) ([]core.EvaluationState, error)
	}

	// InsightPublisher notifies downstream consumers of new insights.
	InsightPublisher interface {
		PublishInsightGenerated(ctx context.Context, msg *amqp.InsightGeneratedMessage) error
	}

	Repository interface {
		TransactionReader
		CategoryReader
		BudgetWriter
		InsightStore
		EvaluationTracker
	}
)
