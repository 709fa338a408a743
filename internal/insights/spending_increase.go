package insights

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SpendingIncreaseRule flags a month whose spending grew by more than the
// configured percentage over the month before it.
type SpendingIncreaseRule struct {
	Percent float64
}

func (r SpendingIncreaseRule) Type() Type { return TypeSpendingIncrease }

func (r SpendingIncreaseRule) Evaluate(rc RuleContext) (*Insight, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	current := rc.CurrentMonth
	previous := current.AddMonths(-1)

	previousTotal := MonthTotal(rc.Transactions, previous)
	if previousTotal.Cents <= 0 {
		return nil, nil
	}
	currentTotal := MonthTotal(rc.Transactions, current)

	change := currentTotal.Decimal().Sub(previousTotal.Decimal()).
		Mul(hundred).
		Div(previousTotal.Decimal())
	if !change.GreaterThan(decimal.NewFromFloat(r.Percent)) {
		return nil, nil
	}

	meta := SpendingIncreaseMetadata{
		CategoryID:               rc.CategoryID,
		CategoryName:             rc.CategoryName,
		CurrentAmount:            round2(currentTotal.Decimal()),
		PreviousAmount:           round2(previousTotal.Decimal()),
		PercentChange:            int(roundInt(change)),
		TransactionCountCurrent:  CountInMonth(rc.Transactions, current),
		TransactionCountPrevious: CountInMonth(rc.Transactions, previous),
		CurrentMonth:             current.MonthLabel(),
		PreviousMonth:            previous.MonthLabel(),
	}

	title := fmt.Sprintf("%s spending up %d%% this month", meta.CategoryName, meta.PercentChange)
	description := fmt.Sprintf(
		"You've spent %s on %s in %s, %d%% more than the %s you spent in %s. "+
			"Consider reviewing your recent %s purchases to see what's driving the change.",
		formatAmount(meta.CurrentAmount), meta.CategoryName, meta.CurrentMonth,
		meta.PercentChange, formatAmount(meta.PreviousAmount), meta.PreviousMonth,
		meta.CategoryName,
	)

	return newInsight(rc, PrioritySpendingIncrease, title, description, meta), nil
}
