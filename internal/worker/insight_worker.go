package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"
	"budgetinsights/internal/services"
)

// Generator evaluates one category and stores the resulting insights.
type Generator interface {
	GenerateForCategory(ctx context.Context, userID, categoryID string, month core.Date) (*services.CategoryResult, error)
}

// InsightWorker re-evaluates categories as transactions arrive, and sweeps
// categories whose messages were missed.
type InsightWorker struct {
	generator Generator
	tracker   services.EvaluationTracker
	trigger   services.EvaluationTrigger
	batchSize int
	logger    *log.Logger
	faults    *log.StructuredLogger
	now       func() time.Time
}

func NewInsightWorker(generator Generator, tracker services.EvaluationTracker, trigger services.EvaluationTrigger, batchSize int, logger *log.Logger) *InsightWorker {
	logger = logger.WithComponent(log.ComponentWorker)
	return &InsightWorker{
		generator: generator,
		tracker:   tracker,
		trigger:   trigger,
		batchSize: batchSize,
		logger:    logger,
		faults:    log.NewStructuredLogger(logger),
		now:       time.Now,
	}
}

// HandleTransactionRecorded counts the new transaction against its category
// and evaluates the category right away when the trigger fires.
func (w *InsightWorker) HandleTransactionRecorded(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	state, err := w.tracker.IncrementPending(ctx, msg.UserID, msg.CategoryID)
	if err != nil {
		return fmt.Errorf("increment pending: %w", err)
	}

	if !w.trigger.ShouldEvaluate(state, w.now()) {
		w.logger.DebugContext(ctx, "Evaluation deferred",
			log.FieldUserID, msg.UserID,
			log.FieldCategoryID, msg.CategoryID,
			"pending", state.Pending)
		return nil
	}

	return w.evaluate(ctx, state, "transaction")
}

// ProcessDueCategories evaluates categories with pending transactions whose
// trigger fires. This is a backup mechanism in case AMQP messages are lost.
// It returns the number of categories evaluated.
func (w *InsightWorker) ProcessDueCategories(ctx context.Context) (int, error) {
	return w.processDue(ctx, w.batchSize)
}

// StartupCheck runs a larger sweep to catch up after worker downtime.
func (w *InsightWorker) StartupCheck(ctx context.Context) error {
	n, err := w.processDue(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup check: %w", err)
	}
	if n == 0 {
		w.logger.InfoContext(ctx, "No pending categories found on startup")
	}
	return nil
}

func (w *InsightWorker) processDue(ctx context.Context, limit int) (int, error) {
	now := w.now()
	due, err := w.tracker.ListDueCategories(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("list due categories: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	evaluated, failed := 0, 0
	for _, st := range due {
		if err := ctx.Err(); err != nil {
			return evaluated, err
		}
		if !w.trigger.ShouldEvaluate(st, now) {
			continue
		}
		if err := w.evaluate(ctx, st, "sweep"); err != nil {
			w.logger.ErrorContext(ctx, "Sweep evaluation failed",
				log.FieldUserID, st.UserID,
				log.FieldCategoryID, st.CategoryID,
				log.FieldError, err)
			failed++
			continue
		}
		evaluated++
	}

	w.logger.InfoContext(ctx, "Sweep completed",
		log.FieldOperation, log.OpSweep,
		"candidates", len(due),
		"evaluated", evaluated,
		"errors", failed)
	return evaluated, nil
}

// evaluate runs the category for the current month. Faults in the data
// itself are logged and the pending counter cleared so the category is not
// retried until new transactions arrive.
func (w *InsightWorker) evaluate(ctx context.Context, st core.EvaluationState, trigger string) error {
	month := core.DateOf(w.now())
	res, err := w.generator.GenerateForCategory(ctx, st.UserID, st.CategoryID, month)
	switch {
	case err == nil:
		w.logger.InfoContext(ctx, "Category evaluated",
			log.FieldUserID, st.UserID,
			log.FieldCategoryID, st.CategoryID,
			log.FieldTrigger, trigger,
			log.FieldCount, len(res.Created))
		return nil
	case errors.Is(err, insights.ErrDataQuality):
		w.faults.LogCategoryFault(ctx, st.UserID, st.CategoryID, err, log.ErrorTypeDataQuality)
	case errors.Is(err, core.ErrNotFound):
		w.faults.LogCategoryFault(ctx, st.UserID, st.CategoryID, err, log.ErrorTypeNotFound)
	default:
		return err
	}

	if err := w.tracker.RecordEvaluation(ctx, st.UserID, st.CategoryID, w.now(), st.Pending); err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}
