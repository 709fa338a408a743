package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budgetinsights/internal/core"
	"budgetinsights/internal/insights"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Fixed-width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// UpsertCategory creates the category or renames it when it already exists.
func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, type, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type`,
		c.ID, c.UserID, c.Name, string(c.Type), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("upsert category %s: %w", c.ID, err)
	}
	return nil
}

// GetCategory returns core.ErrNotFound when the user has no such category.
func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, categoryID string) (core.Category, error) {
	var c core.Category
	var typ string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, type FROM categories WHERE id = ? AND user_id = ?`,
		categoryID, userID).Scan(&c.ID, &c.UserID, &c.Name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %s: %w", categoryID, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", categoryID, err)
	}
	c.Type = core.TransactionType(typ)
	return c, nil
}

func (r *SQLiteRepository) ListUserCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, type FROM categories WHERE user_id = ? ORDER BY name, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var typ string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &typ); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(typ)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetBudget stores the budget effective from b.Month onwards.
func (r *SQLiteRepository) SetBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return fmt.Errorf("invalid budget: %w", err)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (user_id, category_id, month, amount_cents, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, category_id, month) DO UPDATE SET
			amount_cents = excluded.amount_cents,
			updated_at = excluded.updated_at`,
		b.UserID, b.CategoryID, b.Month, b.Amount.Cents, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("set budget: %w", err)
	}
	return nil
}

// GetBudget returns the budget in effect for month: the latest one set at
// or before it. It returns nil when the category has no budget yet.
func (r *SQLiteRepository) GetBudget(ctx context.Context, userID, categoryID, month string) (*core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT amount_cents FROM budgets
		WHERE user_id = ? AND category_id = ? AND month <= ?
		ORDER BY month DESC LIMIT 1`,
		userID, categoryID, month).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get budget: %w", err)
	}
	return &core.Money{Cents: cents}, nil
}

// AddTransaction stores the transaction and returns its ID. A missing ID is
// generated.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("invalid transaction: %w", err)
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, category_id, type, amount_cents, date, currency, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.CategoryID, string(t.Type), t.Amount.Cents, t.Date.String(),
		t.Currency, t.Notes, formatTime(t.CreatedAt))
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"category_id", t.CategoryID,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return t.ID, nil
}

// ListCategoryTransactions returns the category's transactions dated in
// [from, to), oldest first and in insertion order within a day.
func (r *SQLiteRepository) ListCategoryTransactions(ctx context.Context, userID, categoryID string, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, category_id, type, amount_cents, date, currency, notes, created_at
		FROM transactions
		WHERE user_id = ? AND category_id = ? AND date >= ? AND date < ?
		ORDER BY date, created_at, id`,
		userID, categoryID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			t                    core.Transaction
			typ, date, createdAt string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.CategoryID, &typ, &t.Amount.Cents,
			&date, &t.Currency, &t.Notes, &createdAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(typ)
		if t.Date, err = core.ParseDate(date); err != nil {
			return nil, fmt.Errorf("transaction %s: parse date %q: %w", t.ID, date, err)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// SaveInsight persists rec, deduplicating on user, category, type and month.
// An existing active record is refreshed with the new content and keeps its
// ID; a dismissed one is left untouched. created reports whether a new row
// was inserted.
func (r *SQLiteRepository) SaveInsight(ctx context.Context, rec insights.Record) (insights.Record, bool, error) {
	meta, err := json.Marshal(rec.Metadata)
	if err != nil {
		return rec, false, fmt.Errorf("encode insight metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return rec, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	existing, err := scanInsight(tx.QueryRowContext(ctx, selectInsight+`
		WHERE user_id = ? AND category_id = ? AND type = ? AND month = ?`,
		rec.UserID, rec.CategoryID, string(rec.Type), rec.Month))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.ID = uuid.NewString()
		rec.CreatedAt = r.now()
		rec.Dismissed = false
		_, err = tx.ExecContext(ctx, `
			INSERT INTO insights (id, user_id, category_id, type, month, priority, title, description, metadata, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.ID, rec.UserID, rec.CategoryID, string(rec.Type), rec.Month, rec.Priority,
			rec.Title, rec.Description, string(meta), formatTime(rec.CreatedAt))
		if err != nil {
			return rec, false, fmt.Errorf("insert insight: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return rec, false, fmt.Errorf("commit insight: %w", err)
		}
		return rec, true, nil
	case err != nil:
		return rec, false, fmt.Errorf("lookup insight: %w", err)
	}

	if existing.Dismissed {
		return existing, false, nil
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE insights SET priority = ?, title = ?, description = ?, metadata = ? WHERE id = ?`,
		rec.Priority, rec.Title, rec.Description, string(meta), existing.ID)
	if err != nil {
		return rec, false, fmt.Errorf("refresh insight %s: %w", existing.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return rec, false, fmt.Errorf("commit insight: %w", err)
	}

	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	return rec, false, nil
}

// ListInsights returns the user's insights, most urgent first.
func (r *SQLiteRepository) ListInsights(ctx context.Context, userID string, includeDismissed bool) ([]insights.Record, error) {
	query := selectInsight + ` WHERE user_id = ?`
	if !includeDismissed {
		query += ` AND dismissed = 0`
	}
	query += ` ORDER BY priority DESC, created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	defer rows.Close()

	var out []insights.Record
	for rows.Next() {
		rec, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DismissInsight hides an insight from the user for good.
func (r *SQLiteRepository) DismissInsight(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE insights SET dismissed = 1, dismissed_at = COALESCE(dismissed_at, ?)
		WHERE id = ? AND user_id = ?`,
		formatTime(r.now()), id, userID)
	if err != nil {
		return fmt.Errorf("dismiss insight %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("dismiss insight %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("insight %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Insight dismissed", "id", id, "user_id", userID)
	return nil
}

// IncrementPending counts one more transaction awaiting evaluation.
func (r *SQLiteRepository) IncrementPending(ctx context.Context, userID, categoryID string) (core.EvaluationState, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluation_state (user_id, category_id, pending) VALUES (?, ?, 1)
		ON CONFLICT(user_id, category_id) DO UPDATE SET pending = pending + 1`,
		userID, categoryID)
	if err != nil {
		return core.EvaluationState{}, fmt.Errorf("increment pending: %w", err)
	}
	return r.GetEvaluationState(ctx, userID, categoryID)
}

// RecordEvaluation marks the category as evaluated at the given time and
// subtracts the seen transactions from its pending counter.
func (r *SQLiteRepository) RecordEvaluation(ctx context.Context, userID, categoryID string, at time.Time, seen int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluation_state (user_id, category_id, last_evaluated_at, pending) VALUES (?, ?, ?, 0)
		ON CONFLICT(user_id, category_id) DO UPDATE SET
			last_evaluated_at = excluded.last_evaluated_at,
			pending = max(pending - ?, 0)`,
		userID, categoryID, formatTime(at), seen)
	if err != nil {
		return fmt.Errorf("record evaluation: %w", err)
	}
	return nil
}

// GetEvaluationState returns a zero state for a category never seen before.
func (r *SQLiteRepository) GetEvaluationState(ctx context.Context, userID, categoryID string) (core.EvaluationState, error) {
	st, err := scanState(r.db.QueryRowContext(ctx, selectState+` WHERE user_id = ? AND category_id = ?`,
		userID, categoryID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.EvaluationState{UserID: userID, CategoryID: categoryID}, nil
	}
	if err != nil {
		return core.EvaluationState{}, fmt.Errorf("get evaluation state: %w", err)
	}
	return st, nil
}

// ListDueCategories returns up to limit categories with pending transactions
// that have not been evaluated since before, least recently evaluated first.
func (r *SQLiteRepository) ListDueCategories(ctx context.Context, before time.Time, limit int) ([]core.EvaluationState, error) {
	rows, err := r.db.QueryContext(ctx, selectState+`
		WHERE pending > 0 AND (last_evaluated_at IS NULL OR last_evaluated_at < ?)
		ORDER BY last_evaluated_at IS NOT NULL, last_evaluated_at, user_id, category_id
		LIMIT ?`,
		formatTime(before), limit)
	if err != nil {
		return nil, fmt.Errorf("list due categories: %w", err)
	}
	defer rows.Close()

	var out []core.EvaluationState
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation state: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

const selectInsight = `
	SELECT id, user_id, category_id, type, month, priority, title, description, metadata,
		dismissed, created_at, dismissed_at
	FROM insights`

const selectState = `SELECT user_id, category_id, last_evaluated_at, pending FROM evaluation_state`

type scanner interface {
	Scan(dest ...any) error
}

func scanInsight(s scanner) (insights.Record, error) {
	var (
		rec                  insights.Record
		typ, meta, createdAt string
		dismissed            int
		dismissedAt          sql.NullString
	)
	err := s.Scan(&rec.ID, &rec.UserID, &rec.CategoryID, &typ, &rec.Month, &rec.Priority,
		&rec.Title, &rec.Description, &meta, &dismissed, &createdAt, &dismissedAt)
	if err != nil {
		return rec, err
	}

	rec.Type = insights.Type(typ)
	rec.Dismissed = dismissed != 0
	if rec.Metadata, err = insights.DecodeMetadata(rec.Type, []byte(meta)); err != nil {
		return rec, fmt.Errorf("insight %s: %w", rec.ID, err)
	}
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return rec, fmt.Errorf("insight %s: %w", rec.ID, err)
	}
	if dismissedAt.Valid {
		if rec.DismissedAt, err = parseTime(dismissedAt.String); err != nil {
			return rec, fmt.Errorf("insight %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func scanState(s scanner) (core.EvaluationState, error) {
	var (
		st   core.EvaluationState
		last sql.NullString
	)
	if err := s.Scan(&st.UserID, &st.CategoryID, &last, &st.Pending); err != nil {
		return st, err
	}
	if last.Valid {
		t, err := parseTime(last.String)
		if err != nil {
			return st, err
		}
		st.LastEvaluatedAt = t
	}
	return st, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
