package insights

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BudgetRecommendationRule suggests a monthly budget from the average of the
// last RecommendationWindowMonths months plus a buffer.
type BudgetRecommendationRule struct {
	MinTransactions int
	Buffer          float64
	MinAmount       int64
	CloseTolerance  float64
}

func (r BudgetRecommendationRule) Type() Type { return TypeBudgetRecommendation }

func (r BudgetRecommendationRule) Evaluate(rc RuleContext) (*Insight, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if len(rc.Transactions) < r.MinTransactions {
		return nil, nil
	}

	months := windowMonths(rc.CurrentMonth, RecommendationWindowMonths)
	labels := make([]string, len(months))
	sum := decimal.Zero
	for i, m := range months {
		// empty months count as zero, they are not skipped
		sum = sum.Add(MonthTotal(rc.Transactions, m).Decimal())
		labels[i] = m.MonthLabel()
	}
	average := sum.Div(decimal.NewFromInt(int64(len(months))))
	buffer := decimal.NewFromFloat(r.Buffer)
	recommended := roundInt(average.Mul(buffer))

	if recommended < r.MinAmount {
		return nil, nil
	}
	if rc.CurrentBudget != nil && r.budgetIsClose(rc.CurrentBudget.Decimal(), recommended) {
		return nil, nil
	}

	avg := round2(average)
	meta := BudgetRecommendationMetadata{
		CategoryID:        rc.CategoryID,
		CategoryName:      rc.CategoryName,
		ThreeMonthAverage: avg,
		RecommendedBudget: recommended,
		CalculationExplanation: fmt.Sprintf("%d-month average of %s x %s buffer = %d",
			len(months), formatAmount(avg), buffer.StringFixed(2), recommended),
		MonthsAnalyzed: labels,
	}

	title := fmt.Sprintf("Suggested %s budget: %d", meta.CategoryName, meta.RecommendedBudget)
	description := fmt.Sprintf(
		"You've averaged %s per month on %s over the last %d months. "+
			"You might consider a monthly budget of %d, which gives you a comfortable cushion above your typical spending.",
		formatAmount(meta.ThreeMonthAverage), meta.CategoryName, len(months), meta.RecommendedBudget,
	)

	return newInsight(rc, PriorityBudgetRecommendation, title, description, meta), nil
}

// budgetIsClose reports whether the existing budget is within the close
// tolerance of the recommendation, relative to the recommendation.
func (r BudgetRecommendationRule) budgetIsClose(budget decimal.Decimal, recommended int64) bool {
	rec := decimal.NewFromInt(recommended)
	if rec.IsZero() {
		return false
	}
	deviation := budget.Sub(rec).Abs().Div(rec)
	return deviation.LessThanOrEqual(decimal.NewFromFloat(r.CloseTolerance))
}
