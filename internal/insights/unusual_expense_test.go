package insights

import (
	"fmt"
	"strings"
	"testing"

	"budgetinsights/internal/core"
)

func defaultUnusualRule() UnusualExpenseRule {
	return UnusualExpenseRule{
		MinTransactions: DefaultUnusualMinTransactions,
		StdDevMultiple:  DefaultUnusualStdDevMultiple,
	}
}

func TestUnusualExpenseRule_FlagsOutlier(t *testing.T) {
	txs := append(repeat("reg", 10, 2025, 1, 50), tx("big", 2025, 1, 20, 500))

	got := mustEvaluate(t, defaultUnusualRule(), ruleContext(txs, nil))
	if got == nil {
		t.Fatal("expected insight")
	}
	if got.Priority != PriorityUnusualExpense {
		t.Errorf("Priority = %d, want %d", got.Priority, PriorityUnusualExpense)
	}
	meta := got.Metadata.(UnusualExpenseMetadata)
	want := UnusualExpenseMetadata{
		CategoryID:        testCategory,
		CategoryName:      "Dining",
		TransactionAmount: 500,
		CategoryAverage:   90.91,
		StandardDeviation: 129.37,
		StdDevsFromMean:   3.16,
		TransactionID:     "big",
		TransactionDate:   "2025-01-20",
	}
	if meta != want {
		t.Fatalf("metadata = %+v, want %+v", meta, want)
	}
	for _, s := range []string{"We noticed", "might want to review", "500.00", "3.16", "90.91"} {
		if !strings.Contains(got.Description, s) {
			t.Errorf("description %q missing %q", got.Description, s)
		}
	}
	for _, s := range []string{"error", "mistake"} {
		if strings.Contains(strings.ToLower(got.Description), s) {
			t.Errorf("description must not contain %q", s)
		}
	}
	if !strings.Contains(got.Title, "500.00") {
		t.Errorf("title %q missing amount", got.Title)
	}
}

func TestUnusualExpenseRule_Suppressed(t *testing.T) {
	clustered := make([]core.Transaction, 15)
	for i := range clustered {
		clustered[i] = tx(fmt.Sprintf("c%d", i), 2025, 1, i+1, 50+float64(i))
	}

	tests := []struct {
		name string
		txs  []core.Transaction
	}{
		{"clustered amounts", clustered},
		{"fewer than ten transactions", append(repeat("reg", 8, 2025, 1, 50), tx("big", 2025, 1, 20, 5000))},
		{"identical amounts", repeat("same", 12, 2025, 1, 75)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustEvaluate(t, defaultUnusualRule(), ruleContext(tt.txs, nil)); got != nil {
				t.Fatalf("expected no insight, got %+v", got.Metadata)
			}
		})
	}
}

func TestUnusualExpenseRule_TieBreakIsStable(t *testing.T) {
	txs := append(repeat("reg", 20, 2025, 1, 20), tx("first", 2025, 1, 2, 400), tx("second", 2025, 1, 3, 400))

	for i := 0; i < 5; i++ {
		got := mustEvaluate(t, defaultUnusualRule(), ruleContext(txs, nil))
		if got == nil {
			t.Fatal("expected insight")
		}
		if id := got.Metadata.(UnusualExpenseMetadata).TransactionID; id != "first" {
			t.Fatalf("TransactionID = %s, want first", id)
		}
	}
}

func TestUnusualExpenseRule_MultipleIsTunable(t *testing.T) {
	// 3.16 standard deviations: above 3, below 4
	txs := append(repeat("reg", 10, 2025, 1, 50), tx("big", 2025, 1, 20, 500))

	rule := defaultUnusualRule()
	rule.StdDevMultiple = 3
	if got := mustEvaluate(t, rule, ruleContext(txs, nil)); got == nil {
		t.Fatal("expected insight at multiple 3")
	}
	rule.StdDevMultiple = 4
	if got := mustEvaluate(t, rule, ruleContext(txs, nil)); got != nil {
		t.Fatal("expected no insight at multiple 4")
	}
}

func TestUnusualExpenseRule_UsesFullHistory(t *testing.T) {
	// the outlier is months old; the rule looks at the whole sample
	txs := append(repeat("reg", 10, 2025, 1, 50), tx("old", 2024, 11, 20, 500))
	got := mustEvaluate(t, defaultUnusualRule(), ruleContext(txs, nil))
	if got == nil {
		t.Fatal("expected insight")
	}
	if got.Metadata.Month() != "2024-11" {
		t.Errorf("Month() = %s, want 2024-11", got.Metadata.Month())
	}
}
