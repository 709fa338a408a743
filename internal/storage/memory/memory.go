// Package memory is an in-process store used by the memory data backend and
// by tests. It mirrors the behaviour of the SQLite repository.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"

	"github.com/google/uuid"
)

type Store struct {
	mu       sync.Mutex
	cats     map[string]core.Category
	budgets  []core.Budget
	items    []core.Transaction
	insights []insights.Record
	states   map[string]core.EvaluationState
	now      func() time.Time
}

func New() *Store {
	return &Store{
		cats:   map[string]core.Category{},
		states: map[string]core.EvaluationState{},
		now:    time.Now,
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) UpsertCategory(_ context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cats[c.ID] = c
	return nil
}

func (s *Store) GetCategory(_ context.Context, userID, categoryID string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cats[categoryID]
	if !ok || c.UserID != userID {
		return core.Category{}, fmt.Errorf("category %s: %w", categoryID, core.ErrNotFound)
	}
	return c, nil
}

func (s *Store) ListUserCategories(_ context.Context, userID string) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Category
	for _, c := range s.cats {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) SetBudget(_ context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid budget: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.UserID == b.UserID && existing.CategoryID == b.CategoryID && existing.Month == b.Month {
			s.budgets[i] = b
			return nil
		}
	}
	s.budgets = append(s.budgets, b)
	return nil
}

// GetBudget returns the latest budget set at or before month, or nil.
func (s *Store) GetBudget(_ context.Context, userID, categoryID, month string) (*core.Money, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *core.Budget
	for i := range s.budgets {
		b := &s.budgets[i]
		if b.UserID != userID || b.CategoryID != categoryID || b.Month > month {
			continue
		}
		if best == nil || b.Month > best.Month {
			best = b
		}
	}
	if best == nil {
		return nil, nil
	}
	amount := best.Amount
	return &amount, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("invalid transaction: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cats[t.CategoryID]; !ok {
		return "", fmt.Errorf("category %s: %w", t.CategoryID, core.ErrNotFound)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
	}
	s.items = append(s.items, t)
	return t.ID, nil
}

// ListCategoryTransactions returns transactions dated in [from, to), oldest
// first and in insertion order within a day.
func (s *Store) ListCategoryTransactions(_ context.Context, userID, categoryID string, from, to core.Date) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, t := range s.items {
		if t.UserID != userID || t.CategoryID != categoryID {
			continue
		}
		if t.Date.Before(from.Time) || !t.Date.Before(to.Time) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

// SaveInsight deduplicates on user, category, type and month. Dismissed
// records are never overwritten.
func (s *Store) SaveInsight(_ context.Context, rec insights.Record) (insights.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.insights {
		if existing.Key() != rec.Key() {
			continue
		}
		if existing.Dismissed {
			return existing, false, nil
		}
		existing.Priority = rec.Priority
		existing.Title = rec.Title
		existing.Description = rec.Description
		existing.Metadata = rec.Metadata
		s.insights[i] = existing
		return existing, false, nil
	}
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.now()
	rec.Dismissed = false
	rec.DismissedAt = time.Time{}
	s.insights = append(s.insights, rec)
	return rec, true, nil
}

func (s *Store) ListInsights(_ context.Context, userID string, includeDismissed bool) ([]insights.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []insights.Record
	for _, rec := range s.insights {
		if rec.UserID != userID || (rec.Dismissed && !includeDismissed) {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DismissInsight(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, rec := range s.insights {
		if rec.ID != id || rec.UserID != userID {
			continue
		}
		if !rec.Dismissed {
			s.insights[i].Dismissed = true
			s.insights[i].DismissedAt = s.now()
		}
		return nil
	}
	return fmt.Errorf("insight %s: %w", id, core.ErrNotFound)
}

func (s *Store) IncrementPending(_ context.Context, userID, categoryID string) (core.EvaluationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID, categoryID)
	st.Pending++
	s.states[stateKey(userID, categoryID)] = st
	return st, nil
}

func (s *Store) RecordEvaluation(_ context.Context, userID, categoryID string, at time.Time, seen int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state(userID, categoryID)
	st.LastEvaluatedAt = at
	st.Pending = max(st.Pending-seen, 0)
	s.states[stateKey(userID, categoryID)] = st
	return nil
}

func (s *Store) GetEvaluationState(_ context.Context, userID, categoryID string) (core.EvaluationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state(userID, categoryID), nil
}

// ListDueCategories returns up to limit categories with pending transactions
// not evaluated since before, never-evaluated ones first.
func (s *Store) ListDueCategories(_ context.Context, before time.Time, limit int) ([]core.EvaluationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.EvaluationState
	for _, st := range s.states {
		if st.Pending > 0 && st.LastEvaluatedAt.Before(before) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.LastEvaluatedAt.Equal(b.LastEvaluatedAt) {
			return a.LastEvaluatedAt.Before(b.LastEvaluatedAt)
		}
		return stateKey(a.UserID, a.CategoryID) < stateKey(b.UserID, b.CategoryID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) state(userID, categoryID string) core.EvaluationState {
	if st, ok := s.states[stateKey(userID, categoryID)]; ok {
		return st
	}
	return core.EvaluationState{UserID: userID, CategoryID: categoryID}
}

func stateKey(userID, categoryID string) string {
	return strings.Join([]string{userID, categoryID}, "|")
}
