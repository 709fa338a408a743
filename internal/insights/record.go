package insights

import "time"

// Record is an insight as persisted and shown to the user. A record is
// unique per user, category, type and month; regenerating an insight for
// the same month refreshes it in place.
type Record struct {
	ID         string
	CategoryID string
	Month      string
	Insight

	Dismissed   bool
	CreatedAt   time.Time
	DismissedAt time.Time
}

// NewRecord wraps a generated insight for persistence. The ID is assigned
// by the store.
func NewRecord(categoryID string, in Insight) Record {
	month := ""
	if in.Metadata != nil {
		month = in.Metadata.Month()
	}
	return Record{
		CategoryID: categoryID,
		Month:      month,
		Insight:    in,
	}
}

// Key identifies the slot a record occupies for deduplication.
func (r Record) Key() string {
	return r.UserID + "|" + r.CategoryID + "|" + string(r.Type) + "|" + r.Month
}
