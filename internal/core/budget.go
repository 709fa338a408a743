package core

import (
	"errors"
	"time"
)

// ErrNotFound is returned by stores when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Budget is the spending limit a user set for a category starting from a
// given month. It stays in effect for later months until replaced.
type Budget struct {
	UserID     string
	CategoryID string
	Month      string // YYYY-MM
	Amount     Money
}

func (b Budget) Validate() error {
	if b.UserID == "" {
		return ErrEmptyUser
	}
	if b.CategoryID == "" {
		return ErrEmptyCategory
	}
	if _, err := time.Parse(MonthLayout, b.Month); err != nil {
		return ErrInvalidMonth
	}
	return b.Amount.Validate()
}

// EvaluationState tracks when a category was last analysed and how many
// transactions arrived since.
type EvaluationState struct {
	UserID          string
	CategoryID      string
	LastEvaluatedAt time.Time // zero when never evaluated
	Pending         int
}
