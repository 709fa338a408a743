package insights

import (
	"fmt"
	"testing"

	"budgetinsights/internal/core"
)

const testCategory = "cat-dining"

var january = core.NewDate(2025, 1, 15)

func tx(id string, year, month, day int, amount float64) core.Transaction {
	return core.Transaction{
		ID:         id,
		UserID:     "user-1",
		CategoryID: testCategory,
		Amount:     core.MoneyFromUnits(amount),
		Type:       core.Expense,
		Date:       core.NewDate(year, month, day),
		Currency:   "USD",
	}
}

// repeat returns n transactions of the same amount spread over the month.
func repeat(prefix string, n, year, month int, amount float64) []core.Transaction {
	out := make([]core.Transaction, n)
	for i := range out {
		out[i] = tx(fmt.Sprintf("%s-%d", prefix, i), year, month, 1+i%28, amount)
	}
	return out
}

func ruleContext(txs []core.Transaction, budget *core.Money) RuleContext {
	return RuleContext{
		UserID:        "user-1",
		CategoryID:    testCategory,
		CategoryName:  "Dining",
		Transactions:  txs,
		CurrentMonth:  january,
		CurrentBudget: budget,
	}
}

func budget(units float64) *core.Money {
	m := core.MoneyFromUnits(units)
	return &m
}

func mustEvaluate(t *testing.T, r Rule, rc RuleContext) *Insight {
	t.Helper()
	got, err := r.Evaluate(rc)
	if err != nil {
		t.Fatalf("%s.Evaluate() unexpected error: %v", r.Type(), err)
	}
	return got
}
