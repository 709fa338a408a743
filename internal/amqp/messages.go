package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"
)

// TransactionRecordedMessage tells the worker that a category has new data.
// It carries references only; the worker reads the transactions from storage.
type TransactionRecordedMessage struct {
	UserID        string    `json:"user_id"`
	CategoryID    string    `json:"category_id"`
	TransactionID string    `json:"transaction_id"`
	Date          string    `json:"date"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewTransactionRecordedMessage(t core.Transaction) *TransactionRecordedMessage {
	return &TransactionRecordedMessage{
		UserID:        t.UserID,
		CategoryID:    t.CategoryID,
		TransactionID: t.ID,
		Date:          t.Date.String(),
		Timestamp:     time.Now(),
	}
}

func (m *TransactionRecordedMessage) Validate() error {
	if m.UserID == "" {
		return core.ErrEmptyUser
	}
	if m.CategoryID == "" {
		return core.ErrEmptyCategory
	}
	if _, err := core.ParseDate(m.Date); err != nil {
		return errors.New("invalid transaction date")
	}
	return nil
}

// TransactionDate returns the parsed Date field.
func (m *TransactionRecordedMessage) TransactionDate() core.Date {
	d, _ := core.ParseDate(m.Date)
	return d
}

func (m *TransactionRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionRecordedMessageFromJSON decodes and validates a message.
func TransactionRecordedMessageFromJSON(data []byte) (*TransactionRecordedMessage, error) {
	var msg TransactionRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsightGeneratedMessage is published once per newly stored insight.
type InsightGeneratedMessage struct {
	InsightID  string        `json:"insight_id"`
	UserID     string        `json:"user_id"`
	CategoryID string        `json:"category_id"`
	Type       insights.Type `json:"type"`
	Priority   int           `json:"priority"`
	Title      string        `json:"title"`
	Month      string        `json:"month"`
	Timestamp  time.Time     `json:"timestamp"`
}

func NewInsightGeneratedMessage(rec insights.Record) *InsightGeneratedMessage {
	return &InsightGeneratedMessage{
		InsightID:  rec.ID,
		UserID:     rec.UserID,
		CategoryID: rec.CategoryID,
		Type:       rec.Type,
		Priority:   rec.Priority,
		Title:      rec.Title,
		Month:      rec.Month,
		Timestamp:  time.Now(),
	}
}

func (m *InsightGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InsightGeneratedMessageFromJSON(data []byte) (*InsightGeneratedMessage, error) {
	var msg InsightGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
