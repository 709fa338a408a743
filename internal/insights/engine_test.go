package insights

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"budgetinsights/internal/core"
)

// everythingFires triggers all four rules for January 2025.
func everythingFires() RuleContext {
	txs := repeat("nov", 10, 2024, 11, 50)
	txs = append(txs, repeat("dec", 2, 2024, 12, 50)...)
	txs = append(txs, tx("j1", 2025, 1, 2, 50), tx("j2", 2025, 1, 3, 50), tx("j3", 2025, 1, 9, 500))
	return ruleContext(txs, budget(2000))
}

func TestEngine_AllRulesInOrder(t *testing.T) {
	engine := DefaultEngine()
	got, err := engine.ExecuteRulesForCategory(everythingFires())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Type{TypeSpendingIncrease, TypeBudgetRecommendation, TypeUnusualExpense, TypePositiveReinforcement}
	if len(got) != len(want) {
		t.Fatalf("got %d insights, want %d", len(got), len(want))
	}
	for i, insight := range got {
		if insight.Type != want[i] {
			t.Errorf("insight %d type = %s, want %s", i, insight.Type, want[i])
		}
		if insight.UserID != "user-1" {
			t.Errorf("insight %d user = %q", i, insight.UserID)
		}
		if insight.Priority < 1 || insight.Priority > 5 {
			t.Errorf("insight %d priority %d out of range", i, insight.Priority)
		}
	}
}

func TestEngine_MatchesIndividualRules(t *testing.T) {
	engine := DefaultEngine()
	contexts := []RuleContext{
		everythingFires(),
		ruleContext(threeMonths(), nil),
		ruleContext([]core.Transaction{tx("a", 2025, 1, 3, 89)}, budget(100)),
		ruleContext(nil, nil),
	}
	for i, rc := range contexts {
		got, err := engine.ExecuteRulesForCategory(rc)
		if err != nil {
			t.Fatalf("context %d: unexpected error: %v", i, err)
		}
		want := []Insight{}
		for _, rule := range engine.Rules() {
			insight, err := rule.Evaluate(rc)
			if err != nil {
				t.Fatalf("context %d: %s: %v", i, rule.Type(), err)
			}
			if insight != nil {
				want = append(want, *insight)
			}
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("context %d: orchestrator = %+v, individual rules = %+v", i, got, want)
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	engine := DefaultEngine()
	first, err := engine.ExecuteRulesForCategory(everythingFires())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := engine.ExecuteRulesForCategory(everythingFires())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
	}
}

func TestEngine_LowVolumeNoBudget(t *testing.T) {
	got, err := DefaultEngine().ExecuteRulesForCategory(ruleContext([]core.Transaction{tx("a", 2025, 1, 3, 12)}, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", got)
	}
}

func TestEngine_DataQualityFaults(t *testing.T) {
	negative := tx("neg", 2025, 1, 3, 10)
	negative.Amount = core.Money{Cents: -1000}
	undated := tx("undated", 2025, 1, 3, 10)
	undated.Date = core.Date{}
	foreign := tx("foreign", 2025, 1, 3, 10)
	foreign.CategoryID = "other"
	unknownType := tx("typ", 2025, 1, 3, 10)
	unknownType.Type = "transfer"

	huge := tx("huge", 2025, 1, 3, 10)
	huge.Amount = core.Money{Cents: core.MaxAmountCents + 1}
	wrapping := []core.Transaction{
		tx("d1", 2024, 12, 3, 10), tx("d2", 2024, 12, 4, 10), tx("j1", 2025, 1, 3, 1),
	}
	wrapping[0].Amount = core.Money{Cents: 5e18}
	wrapping[1].Amount = core.Money{Cents: 5e18}

	noMonth := ruleContext(nil, nil)
	noMonth.CurrentMonth = core.Date{}

	tests := []struct {
		name string
		rc   RuleContext
	}{
		{"negative amount", ruleContext([]core.Transaction{negative}, nil)},
		{"zero date", ruleContext([]core.Transaction{undated}, nil)},
		{"foreign category", ruleContext([]core.Transaction{foreign}, nil)},
		{"unknown type", ruleContext([]core.Transaction{unknownType}, nil)},
		{"amount above ceiling", ruleContext([]core.Transaction{huge}, nil)},
		{"amounts that would wrap the month total", ruleContext(wrapping, budget(100))},
		{"non-positive budget", ruleContext(nil, &core.Money{Cents: 0})},
		{"budget above ceiling", ruleContext(nil, &core.Money{Cents: core.MaxAmountCents + 1})},
		{"missing reference month", noMonth},
	}
	engine := DefaultEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ExecuteRulesForCategory(tt.rc)
			if !errors.Is(err, ErrDataQuality) {
				t.Fatalf("expected ErrDataQuality, got %v", err)
			}
			var dq *DataQualityError
			if !errors.As(err, &dq) {
				t.Fatalf("expected *DataQualityError, got %T", err)
			}
			for _, rule := range engine.Rules() {
				if _, err := rule.Evaluate(tt.rc); !errors.Is(err, ErrDataQuality) {
					t.Errorf("%s: expected ErrDataQuality, got %v", rule.Type(), err)
				}
			}
		})
	}
}

func TestNewEngine_RejectsBadThresholds(t *testing.T) {
	bad := DefaultThresholds()
	bad.UnusualStdDevMultiple = 0
	bad.PositiveUsagePercent = 150
	if _, err := NewEngine(bad); err == nil {
		t.Fatal("expected error")
	}
}

func TestDecodeMetadata(t *testing.T) {
	insights, err := DefaultEngine().ExecuteRulesForCategory(everythingFires())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, insight := range insights {
		raw, err := json.Marshal(insight.Metadata)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		decoded, err := DecodeMetadata(insight.Type, raw)
		if err != nil {
			t.Fatalf("decode %s: %v", insight.Type, err)
		}
		if !reflect.DeepEqual(decoded, insight.Metadata) {
			t.Errorf("%s: decoded %+v, want %+v", insight.Type, decoded, insight.Metadata)
		}
	}
	if _, err := DecodeMetadata("nope", []byte("{}")); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
