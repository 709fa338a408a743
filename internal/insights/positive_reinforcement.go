package insights

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PositiveReinforcementRule congratulates the user when the current month's
// spending is comfortably below the category budget.
type PositiveReinforcementRule struct {
	UsagePercent float64
}

func (r PositiveReinforcementRule) Type() Type { return TypePositiveReinforcement }

func (r PositiveReinforcementRule) Evaluate(rc RuleContext) (*Insight, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if rc.CurrentBudget == nil {
		return nil, nil
	}
	if CountInMonth(rc.Transactions, rc.CurrentMonth) == 0 {
		return nil, nil
	}

	budget := rc.CurrentBudget.Decimal()
	spent := MonthTotal(rc.Transactions, rc.CurrentMonth).Decimal()
	usage := spent.Mul(hundred).Div(budget)
	if !usage.LessThan(decimal.NewFromFloat(r.UsagePercent)) {
		return nil, nil
	}

	meta := PositiveReinforcementMetadata{
		CategoryID:         rc.CategoryID,
		CategoryName:       rc.CategoryName,
		BudgetAmount:       round2(budget),
		ActualSpending:     round2(spent),
		SavingsAmount:      roundInt(budget.Sub(spent)),
		PercentUnderBudget: int(roundInt(hundred.Sub(usage))),
		CurrentMonth:       rc.CurrentMonth.MonthLabel(),
	}

	title := fmt.Sprintf("Great job! %d%% under your %s budget", meta.PercentUnderBudget, meta.CategoryName)
	description := fmt.Sprintf(
		"Great job! You've spent %s of your %s %s budget in %s, leaving %d to spare. "+
			"Keep up the excellent work!",
		formatAmount(meta.ActualSpending), formatAmount(meta.BudgetAmount), meta.CategoryName,
		meta.CurrentMonth, meta.SavingsAmount,
	)

	return newInsight(rc, PriorityPositiveReinforcement, title, description, meta), nil
}
