package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"budgetinsights/internal/amqp"
	"budgetinsights/internal/cache"
	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
	"budgetinsights/internal/log"

	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultCacheSize   = 500
	defaultCacheTTL    = 10 * time.Minute
)

// InsightService loads category data, runs the rules engine and persists
// and publishes the resulting insights.
type InsightService struct {
	engine      *insights.Engine
	repo        Repository
	publisher   InsightPublisher
	// categories caches category names. Budgets are read on every
	// evaluation so a budget set by another process applies immediately.
	categories  *cache.LRUCache[string]
	concurrency int
	logger      *log.StructuredLogger
	now         func() time.Time
}

type Option func(*InsightService)

// WithPublisher publishes every newly created insight. Without it insights
// are only stored.
func WithPublisher(p InsightPublisher) Option {
	return func(s *InsightService) { s.publisher = p }
}

// WithCategoryCacheSize replaces the default category cache with one of the
// given size and TTL.
func WithCategoryCacheSize(size int, ttl time.Duration) Option {
	return func(s *InsightService) { s.categories = cache.NewLRUCache[string](size, ttl) }
}

// WithConcurrency bounds how many categories GenerateForUser evaluates at once.
func WithConcurrency(n int) Option {
	return func(s *InsightService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *InsightService) {
		s.logger = log.NewStructuredLogger(l.WithComponent(log.ComponentService))
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *InsightService) { s.now = now }
}

func NewInsightService(engine *insights.Engine, repo Repository, opts ...Option) *InsightService {
	s := &InsightService{
		engine:      engine,
		repo:        repo,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.categories == nil {
		s.categories = cache.NewLRUCache[string](defaultCacheSize, defaultCacheTTL)
	}
	if s.logger == nil {
		s.logger = log.NewStructuredLogger(log.New(log.DefaultConfig()).WithComponent(log.ComponentService))
	}
	return s
}

// CategoryCache exposes the lookup cache so callers can register it for
// periodic cleanup.
func (s *InsightService) CategoryCache() cache.Cleaner {
	return s.categories
}

// CategoryResult is the outcome of evaluating one category.
type CategoryResult struct {
	UserID     string
	CategoryID string
	Month      string
	// Generated holds every insight the engine produced, in rule order.
	Generated []insights.Insight
	// Created holds the insights stored for the first time.
	Created []insights.Record
}

// CategoryFault records a category that could not be evaluated.
type CategoryFault struct {
	CategoryID string
	Err        error
}

// GenerateResult is the outcome of evaluating every category of a user.
type GenerateResult struct {
	UserID     string
	Month      string
	Categories []CategoryResult
	Faults     []CategoryFault
}

// Created returns the number of insights stored for the first time.
func (r *GenerateResult) Created() int {
	n := 0
	for _, c := range r.Categories {
		n += len(c.Created)
	}
	return n
}

// GenerateForCategory evaluates one category for the month containing
// month. A malformed transaction yields an error matching
// insights.ErrDataQuality and nothing is stored.
func (s *InsightService) GenerateForCategory(ctx context.Context, userID, categoryID string, month core.Date) (*CategoryResult, error) {
	start := time.Now()
	label := month.MonthLabel()

	name, err := s.categoryName(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	budget, err := s.repo.GetBudget(ctx, userID, categoryID, label)
	if err != nil {
		return nil, fmt.Errorf("load budget: %w", err)
	}

	// Transactions counted after this point are not cleared by this run.
	state, err := s.repo.GetEvaluationState(ctx, userID, categoryID)
	if err != nil {
		return nil, fmt.Errorf("load evaluation state: %w", err)
	}

	from := month.AddMonths(-(insights.RecommendationWindowMonths - 1))
	to := month.AddMonths(1)
	txs, err := s.repo.ListCategoryTransactions(ctx, userID, categoryID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	generated, err := s.engine.ExecuteRulesForCategory(insights.RuleContext{
		UserID:        userID,
		CategoryID:    categoryID,
		CategoryName:  name,
		Transactions:  txs,
		CurrentMonth:  month,
		CurrentBudget: budget,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate category %s: %w", categoryID, err)
	}

	res := &CategoryResult{
		UserID:     userID,
		CategoryID: categoryID,
		Month:      label,
		Generated:  generated,
	}
	for _, in := range generated {
		rec, created, err := s.repo.SaveInsight(ctx, insights.NewRecord(categoryID, in))
		if err != nil {
			return nil, fmt.Errorf("save %s insight: %w", in.Type, err)
		}
		if !created {
			continue
		}
		res.Created = append(res.Created, rec)
		s.logger.LogInsightStored(ctx, rec.ID, userID, categoryID, string(rec.Type), rec.Priority)
		s.publish(ctx, rec)
	}

	if err := s.repo.RecordEvaluation(ctx, userID, categoryID, s.now(), state.Pending); err != nil {
		return nil, fmt.Errorf("record evaluation: %w", err)
	}

	s.logger.LogInsightsGenerated(ctx, userID, categoryID, label, len(generated), len(res.Created), time.Since(start))
	return res, nil
}

// GenerateForUser evaluates every expense category of the user concurrently.
// A category that fails is reported in Faults and does not stop the others;
// only cancellation of ctx aborts the run.
func (s *InsightService) GenerateForUser(ctx context.Context, userID string, month core.Date) (*GenerateResult, error) {
	cats, err := s.repo.ListUserCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	var expense []core.Category
	for _, c := range cats {
		if c.Type == core.Expense {
			expense = append(expense, c)
		}
	}

	results := make([]*CategoryResult, len(expense))
	var (
		mu     sync.Mutex
		faults []CategoryFault
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, c := range expense {
		g.Go(func() error {
			res, err := s.GenerateForCategory(gctx, userID, c.ID, month)
			if err == nil {
				results[i] = res
				return nil
			}
			if gctx.Err() != nil {
				return gctx.Err()
			}
			s.logger.LogCategoryFault(gctx, userID, c.ID, err, errorType(err))
			mu.Lock()
			faults = append(faults, CategoryFault{CategoryID: c.ID, Err: err})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := &GenerateResult{UserID: userID, Month: month.MonthLabel()}
	for _, r := range results {
		if r != nil {
			out.Categories = append(out.Categories, *r)
		}
	}
	// Report faults in category order regardless of completion order.
	for _, c := range expense {
		for _, f := range faults {
			if f.CategoryID == c.ID {
				out.Faults = append(out.Faults, f)
			}
		}
	}
	return out, nil
}

// ListInsights returns the user's insights, most urgent first.
func (s *InsightService) ListInsights(ctx context.Context, userID string, includeDismissed bool) ([]insights.Record, error) {
	recs, err := s.repo.ListInsights(ctx, userID, includeDismissed)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return recs, nil
}

// DismissInsight hides an insight; it will not be recreated for the same month.
func (s *InsightService) DismissInsight(ctx context.Context, userID, id string) error {
	if err := s.repo.DismissInsight(ctx, userID, id); err != nil {
		return fmt.Errorf("dismiss insight: %w", err)
	}
	return nil
}

// SetBudget stores a budget. It applies from the next evaluation on.
func (s *InsightService) SetBudget(ctx context.Context, b core.Budget) error {
	if err := s.repo.SetBudget(ctx, b); err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

func (s *InsightService) categoryName(ctx context.Context, userID, categoryID string) (string, error) {
	key := cacheKey(userID, categoryID)
	if name, ok := s.categories.Get(key); ok {
		return name, nil
	}

	cat, err := s.repo.GetCategory(ctx, userID, categoryID)
	if err != nil {
		return "", fmt.Errorf("load category: %w", err)
	}
	s.categories.Set(key, cat.Name)
	return cat.Name, nil
}

func (s *InsightService) publish(ctx context.Context, rec insights.Record) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishInsightGenerated(ctx, amqp.NewInsightGeneratedMessage(rec)); err != nil {
		// The insight is stored; notification is best effort.
		s.logger.LogError(ctx, "Failed to publish insight", err, log.OpPublish,
			log.NewFields().WithUser(rec.UserID).WithInsight(rec.ID, string(rec.Type), rec.Priority))
	}
}

func cacheKey(userID, categoryID string) string {
	return userID + "|" + categoryID
}

func errorType(err error) string {
	switch {
	case errors.Is(err, insights.ErrDataQuality):
		return log.ErrorTypeDataQuality
	case errors.Is(err, core.ErrNotFound):
		return log.ErrorTypeNotFound
	default:
		return log.ErrorTypeDatabase
	}
}
