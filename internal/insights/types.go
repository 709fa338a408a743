// Package insights implements the rules engine that turns one category's
// transaction history into short templated observations.
//
// Every rule is a pure function of a RuleContext: no I/O, no shared state,
// identical input always yields identical output. A rule either returns an
// Insight, returns nil when its sample-size or policy preconditions are not
// met, or returns a DataQualityError when the input itself is malformed.
package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"budgetinsights/internal/core"
)

// Type identifies which rule produced an insight.
type Type string

const (
	TypeSpendingIncrease      Type = "spending_increase"
	TypeBudgetRecommendation  Type = "budget_recommendation"
	TypeUnusualExpense        Type = "unusual_expense"
	TypePositiveReinforcement Type = "positive_reinforcement"
)

// Valid reports whether t is one of the four known insight types.
func (t Type) Valid() bool {
	switch t {
	case TypeSpendingIncrease, TypeBudgetRecommendation, TypeUnusualExpense, TypePositiveReinforcement:
		return true
	}
	return false
}

// RuleContext is the input shared by every rule for one user, one category
// and one reference month.
type RuleContext struct {
	UserID       string
	CategoryID   string
	CategoryName string
	// Transactions must already be restricted to CategoryID.
	Transactions []core.Transaction
	// CurrentMonth is any date inside the month treated as "this month".
	CurrentMonth core.Date
	// CurrentBudget is nil when the category has no configured budget.
	CurrentBudget *core.Money
}

// Insight is a single templated observation produced by a rule.
type Insight struct {
	UserID      string   `json:"user_id"`
	Type        Type     `json:"type"`
	Priority    int      `json:"priority"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Metadata    Metadata `json:"metadata"`
}

// Metadata is the type-specific payload attached to an insight. The set of
// implementations is closed.
type Metadata interface {
	insightType() Type
	// Month is the YYYY-MM month the insight is about.
	Month() string
}

type SpendingIncreaseMetadata struct {
	CategoryID               string  `json:"category_id"`
	CategoryName             string  `json:"category_name"`
	CurrentAmount            float64 `json:"current_amount"`
	PreviousAmount           float64 `json:"previous_amount"`
	PercentChange            int     `json:"percent_change"`
	TransactionCountCurrent  int     `json:"transaction_count_current"`
	TransactionCountPrevious int     `json:"transaction_count_previous"`
	CurrentMonth             string  `json:"current_month"`
	PreviousMonth            string  `json:"previous_month"`
}

type BudgetRecommendationMetadata struct {
	CategoryID             string   `json:"category_id"`
	CategoryName           string   `json:"category_name"`
	ThreeMonthAverage      float64  `json:"three_month_average"`
	RecommendedBudget      int64    `json:"recommended_budget"`
	CalculationExplanation string   `json:"calculation_explanation"`
	MonthsAnalyzed         []string `json:"months_analyzed"`
}

type UnusualExpenseMetadata struct {
	CategoryID        string  `json:"category_id"`
	CategoryName      string  `json:"category_name"`
	TransactionAmount float64 `json:"transaction_amount"`
	CategoryAverage   float64 `json:"category_average"`
	StandardDeviation float64 `json:"standard_deviation"`
	StdDevsFromMean   float64 `json:"std_devs_from_mean"`
	TransactionID     string  `json:"transaction_id"`
	TransactionDate   string  `json:"transaction_date"`
}

type PositiveReinforcementMetadata struct {
	CategoryID         string  `json:"category_id"`
	CategoryName       string  `json:"category_name"`
	BudgetAmount       float64 `json:"budget_amount"`
	ActualSpending     float64 `json:"actual_spending"`
	SavingsAmount      int64   `json:"savings_amount"`
	PercentUnderBudget int     `json:"percent_under_budget"`
	CurrentMonth       string  `json:"current_month"`
}

func (SpendingIncreaseMetadata) insightType() Type      { return TypeSpendingIncrease }
func (BudgetRecommendationMetadata) insightType() Type  { return TypeBudgetRecommendation }
func (UnusualExpenseMetadata) insightType() Type        { return TypeUnusualExpense }
func (PositiveReinforcementMetadata) insightType() Type { return TypePositiveReinforcement }

func (m SpendingIncreaseMetadata) Month() string { return m.CurrentMonth }

// Month of a recommendation is the last month of the analysed window.
func (m BudgetRecommendationMetadata) Month() string {
	if len(m.MonthsAnalyzed) == 0 {
		return ""
	}
	return m.MonthsAnalyzed[len(m.MonthsAnalyzed)-1]
}

// Month of an unusual expense is the month the transaction was dated in.
func (m UnusualExpenseMetadata) Month() string {
	if len(m.TransactionDate) < len(core.MonthLayout) {
		return m.TransactionDate
	}
	return m.TransactionDate[:len(core.MonthLayout)]
}

func (m PositiveReinforcementMetadata) Month() string { return m.CurrentMonth }

// DecodeMetadata rebuilds the typed metadata of an insight from its JSON form.
func DecodeMetadata(t Type, raw []byte) (Metadata, error) {
	var (
		m   Metadata
		err error
	)
	switch t {
	case TypeSpendingIncrease:
		var v SpendingIncreaseMetadata
		err = json.Unmarshal(raw, &v)
		m = v
	case TypeBudgetRecommendation:
		var v BudgetRecommendationMetadata
		err = json.Unmarshal(raw, &v)
		m = v
	case TypeUnusualExpense:
		var v UnusualExpenseMetadata
		err = json.Unmarshal(raw, &v)
		m = v
	case TypePositiveReinforcement:
		var v PositiveReinforcementMetadata
		err = json.Unmarshal(raw, &v)
		m = v
	default:
		return nil, fmt.Errorf("unknown insight type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", t, err)
	}
	return m, nil
}

// ErrDataQuality marks input that is malformed rather than merely too thin
// to reason about. Rules fail with it instead of emitting an insight.
var ErrDataQuality = errors.New("data quality fault")

// DataQualityError describes the offending field.
type DataQualityError struct {
	TransactionID string
	Field         string
	Reason        string
}

func (e *DataQualityError) Error() string {
	if e.TransactionID != "" {
		return fmt.Sprintf("%s: transaction %s: %s %s", ErrDataQuality, e.TransactionID, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrDataQuality, e.Field, e.Reason)
}

func (e *DataQualityError) Unwrap() error { return ErrDataQuality }

// Validate checks the context for malformed data.
func (rc RuleContext) Validate() error {
	if err := rc.CurrentMonth.Validate(); err != nil {
		return &DataQualityError{Field: "current_month", Reason: err.Error()}
	}
	if rc.CurrentBudget != nil && rc.CurrentBudget.Cents <= 0 {
		return &DataQualityError{Field: "current_budget", Reason: "must be positive"}
	}
	if rc.CurrentBudget != nil && rc.CurrentBudget.Cents > core.MaxAmountCents {
		return &DataQualityError{Field: "current_budget", Reason: "exceeds the maximum amount"}
	}
	var total int64
	for _, tx := range rc.Transactions {
		if err := tx.Date.Validate(); err != nil {
			return &DataQualityError{TransactionID: tx.ID, Field: "date", Reason: err.Error()}
		}
		if tx.Amount.Cents <= 0 {
			return &DataQualityError{TransactionID: tx.ID, Field: "amount", Reason: "must be positive"}
		}
		if tx.Amount.Cents > core.MaxAmountCents {
			return &DataQualityError{TransactionID: tx.ID, Field: "amount", Reason: "exceeds the maximum amount"}
		}
		// month totals are summed in int64 cents
		if total > math.MaxInt64-tx.Amount.Cents {
			return &DataQualityError{TransactionID: tx.ID, Field: "amount", Reason: "history total overflows"}
		}
		total += tx.Amount.Cents
		if !tx.Type.Valid() {
			return &DataQualityError{TransactionID: tx.ID, Field: "type", Reason: fmt.Sprintf("unknown value %q", tx.Type)}
		}
		if tx.CategoryID != rc.CategoryID {
			return &DataQualityError{TransactionID: tx.ID, Field: "category_id", Reason: fmt.Sprintf("%q does not match context category %q", tx.CategoryID, rc.CategoryID)}
		}
	}
	return nil
}
