package insights

import (
	"fmt"

	"github.com/shopspring/decimal"

	"budgetinsights/internal/core"
)

// UnusualExpenseRule flags the single transaction that sits furthest above
// the category's average, when it is more than StdDevMultiple standard
// deviations away. The candidate is part of its own sample.
type UnusualExpenseRule struct {
	MinTransactions int
	StdDevMultiple  float64
}

func (r UnusualExpenseRule) Type() Type { return TypeUnusualExpense }

func (r UnusualExpenseRule) Evaluate(rc RuleContext) (*Insight, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if len(rc.Transactions) < r.MinTransactions {
		return nil, nil
	}

	amounts := make([]float64, len(rc.Transactions))
	for i, tx := range rc.Transactions {
		amounts[i] = tx.Amount.Units()
	}
	stats, err := Summarize(amounts)
	if err != nil {
		return nil, err
	}
	if stats.StdDev == 0 {
		return nil, nil
	}

	// first occurrence wins among equal amounts
	var outlier *core.Transaction
	for i := range rc.Transactions {
		if outlier == nil || rc.Transactions[i].Amount.Cents > outlier.Amount.Cents {
			outlier = &rc.Transactions[i]
		}
	}
	zScore := (outlier.Amount.Units() - stats.Mean) / stats.StdDev
	if zScore <= r.StdDevMultiple {
		return nil, nil
	}

	meta := UnusualExpenseMetadata{
		CategoryID:        rc.CategoryID,
		CategoryName:      rc.CategoryName,
		TransactionAmount: round2(outlier.Amount.Decimal()),
		CategoryAverage:   round2(decimal.NewFromFloat(stats.Mean)),
		StandardDeviation: round2(decimal.NewFromFloat(stats.StdDev)),
		StdDevsFromMean:   round2(decimal.NewFromFloat(zScore)),
		TransactionID:     outlier.ID,
		TransactionDate:   outlier.Date.String(),
	}

	title := fmt.Sprintf("Unusual %s expense of %s", meta.CategoryName, formatAmount(meta.TransactionAmount))
	description := fmt.Sprintf(
		"We noticed a %s expense of %s on %s, which is %s standard deviations above your usual %s spend of %s. "+
			"You might want to review it to make sure it's what you expected.",
		meta.CategoryName, formatAmount(meta.TransactionAmount), meta.TransactionDate,
		formatAmount(meta.StdDevsFromMean), meta.CategoryName, formatAmount(meta.CategoryAverage),
	)

	return newInsight(rc, PriorityUnusualExpense, title, description, meta), nil
}
