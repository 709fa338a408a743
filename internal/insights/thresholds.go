package insights

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Rule thresholds. Boundaries are exclusive: a spending change of exactly
// DefaultSpendingIncreasePercent does not trigger, and a budget usage of
// exactly DefaultPositiveUsagePercent does not earn reinforcement.
const (
	DefaultSpendingIncreasePercent = 20.0

	DefaultRecommendationMinTransactions = 5
	DefaultRecommendationBuffer          = 1.10
	DefaultRecommendationMinAmount       = 20
	// An existing budget within this fraction of the recommendation is
	// already adequate and suppresses the recommendation (inclusive).
	DefaultBudgetCloseTolerance = 0.10

	DefaultUnusualMinTransactions = 10
	DefaultUnusualStdDevMultiple  = 2.0

	DefaultPositiveUsagePercent = 90.0

	// RecommendationWindowMonths is the number of months, ending with the
	// reference month, averaged by the budget recommendation.
	RecommendationWindowMonths = 3
)

// Priorities, 5 being the most urgent.
const (
	PriorityUnusualExpense        = 5
	PrioritySpendingIncrease      = 4
	PriorityBudgetRecommendation  = 3
	PriorityPositiveReinforcement = 2
)

// Thresholds groups the tunable rule parameters.
type Thresholds struct {
	SpendingIncreasePercent       float64
	RecommendationMinTransactions int
	RecommendationBuffer          float64
	RecommendationMinAmount       int64
	BudgetCloseTolerance          float64
	UnusualMinTransactions        int
	UnusualStdDevMultiple         float64
	PositiveUsagePercent          float64
}

// DefaultThresholds returns the production thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SpendingIncreasePercent:       DefaultSpendingIncreasePercent,
		RecommendationMinTransactions: DefaultRecommendationMinTransactions,
		RecommendationBuffer:          DefaultRecommendationBuffer,
		RecommendationMinAmount:       DefaultRecommendationMinAmount,
		BudgetCloseTolerance:          DefaultBudgetCloseTolerance,
		UnusualMinTransactions:        DefaultUnusualMinTransactions,
		UnusualStdDevMultiple:         DefaultUnusualStdDevMultiple,
		PositiveUsagePercent:          DefaultPositiveUsagePercent,
	}
}

// Validate rejects thresholds that would make a rule meaningless.
func (t Thresholds) Validate() error {
	var problems []string
	if t.SpendingIncreasePercent < 0 {
		problems = append(problems, fmt.Sprintf("spending increase percent %v must not be negative", t.SpendingIncreasePercent))
	}
	if t.RecommendationMinTransactions < 1 {
		problems = append(problems, fmt.Sprintf("recommendation min transactions %d must be at least 1", t.RecommendationMinTransactions))
	}
	if t.RecommendationBuffer < 1 {
		problems = append(problems, fmt.Sprintf("recommendation buffer %v must be at least 1", t.RecommendationBuffer))
	}
	if t.RecommendationMinAmount < 0 {
		problems = append(problems, fmt.Sprintf("recommendation min amount %d must not be negative", t.RecommendationMinAmount))
	}
	if t.BudgetCloseTolerance < 0 || t.BudgetCloseTolerance >= 1 {
		problems = append(problems, fmt.Sprintf("budget close tolerance %v must be in [0, 1)", t.BudgetCloseTolerance))
	}
	if t.UnusualMinTransactions < 2 {
		problems = append(problems, fmt.Sprintf("unusual min transactions %d must be at least 2", t.UnusualMinTransactions))
	}
	if t.UnusualStdDevMultiple <= 0 {
		problems = append(problems, fmt.Sprintf("unusual stddev multiple %v must be positive", t.UnusualStdDevMultiple))
	}
	if t.PositiveUsagePercent <= 0 || t.PositiveUsagePercent > 100 {
		problems = append(problems, fmt.Sprintf("positive usage percent %v must be in (0, 100]", t.PositiveUsagePercent))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid thresholds: %s", strings.Join(problems, "; "))
	}
	return nil
}

var (
	hundred = decimal.NewFromInt(100)
)

// roundInt rounds half away from zero, matching the half-up rounding used
// for every user-facing integer.
func roundInt(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// round2 rounds to cents and returns a float for metadata.
func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// formatAmount renders a metadata amount as a plain two-decimal number.
func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
