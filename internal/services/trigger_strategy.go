// This file implements the strategies deciding when a category with new
// transactions should be re-evaluated. Each strategy looks only at the
// category's evaluation state and the current time.

package services

import (
	"fmt"
	"time"

	"budgetinsights/internal/core"
)

// EvaluationTrigger decides whether a category is due for evaluation.
type EvaluationTrigger interface {
	ShouldEvaluate(state core.EvaluationState, now time.Time) bool
}

// VolumeTrigger fires once Threshold transactions arrived since the last
// evaluation.
type VolumeTrigger struct {
	Threshold int
}

func (v VolumeTrigger) ShouldEvaluate(state core.EvaluationState, _ time.Time) bool {
	return state.Pending > 0 && state.Pending >= v.Threshold
}

// Frequency is how often IntervalTrigger lets a category with pending
// transactions be re-evaluated.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// IntervalTrigger fires for a category with pending transactions when the
// last evaluation is older than its frequency allows.
type IntervalTrigger struct {
	Frequency Frequency
}

func (i IntervalTrigger) ShouldEvaluate(state core.EvaluationState, now time.Time) bool {
	if state.Pending == 0 {
		return false
	}
	last := state.LastEvaluatedAt
	if last.IsZero() {
		return true
	}
	switch i.Frequency {
	case Daily:
		return last.Format(time.DateOnly) != now.Format(time.DateOnly)
	case Weekly:
		return now.Sub(last) >= 7*24*time.Hour
	case Monthly:
		return last.Year() != now.Year() || last.Month() != now.Month()
	}
	return false
}

// AnyTrigger fires when at least one of its triggers does.
type AnyTrigger []EvaluationTrigger

func (a AnyTrigger) ShouldEvaluate(state core.EvaluationState, now time.Time) bool {
	for _, t := range a {
		if t.ShouldEvaluate(state, now) {
			return true
		}
	}
	return false
}

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case Daily, Weekly, Monthly:
		return f, nil
	}
	return "", fmt.Errorf("unknown evaluation frequency: %s", s)
}

// DefaultTrigger evaluates a category as soon as volume new transactions
// arrived, and otherwise at most once per frequency period.
func DefaultTrigger(volume int, frequency Frequency) EvaluationTrigger {
	return AnyTrigger{
		VolumeTrigger{Threshold: volume},
		IntervalTrigger{Frequency: frequency},
	}
}
