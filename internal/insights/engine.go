package insights

import "fmt"

// Rule maps a RuleContext to an Insight, or to nil when it does not apply.
type Rule interface {
	Type() Type
	Evaluate(rc RuleContext) (*Insight, error)
}

// Engine runs the fixed rule pipeline. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	thresholds Thresholds
	rules      []Rule
}

// NewEngine builds the pipeline SpendingIncrease -> BudgetRecommendation ->
// UnusualExpense -> PositiveReinforcement from the given thresholds.
func NewEngine(t Thresholds) (*Engine, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		thresholds: t,
		rules: []Rule{
			SpendingIncreaseRule{Percent: t.SpendingIncreasePercent},
			BudgetRecommendationRule{
				MinTransactions: t.RecommendationMinTransactions,
				Buffer:          t.RecommendationBuffer,
				MinAmount:       t.RecommendationMinAmount,
				CloseTolerance:  t.BudgetCloseTolerance,
			},
			UnusualExpenseRule{
				MinTransactions: t.UnusualMinTransactions,
				StdDevMultiple:  t.UnusualStdDevMultiple,
			},
			PositiveReinforcementRule{UsagePercent: t.PositiveUsagePercent},
		},
	}, nil
}

// DefaultEngine returns an engine configured with DefaultThresholds.
func DefaultEngine() *Engine {
	e, err := NewEngine(DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return e
}

// Thresholds returns the thresholds the engine was built with.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// Rules returns the pipeline in evaluation order.
func (e *Engine) Rules() []Rule {
	return append([]Rule(nil), e.rules...)
}

// ExecuteRulesForCategory runs every rule against rc and returns the
// insights that fired, in pipeline order. The result is never nil. A data
// quality fault in the context aborts the whole category.
func (e *Engine) ExecuteRulesForCategory(rc RuleContext) ([]Insight, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	out := make([]Insight, 0, len(e.rules))
	for _, rule := range e.rules {
		insight, err := rule.Evaluate(rc)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rule.Type(), err)
		}
		if insight == nil {
			continue
		}
		insight.UserID = rc.UserID
		out = append(out, *insight)
	}
	return out, nil
}

func newInsight(rc RuleContext, priority int, title, description string, meta Metadata) *Insight {
	return &Insight{
		UserID:      rc.UserID,
		Type:        meta.insightType(),
		Priority:    priority,
		Title:       title,
		Description: description,
		Metadata:    meta,
	}
}
