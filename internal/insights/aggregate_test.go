package insights

import (
	"testing"
	"time"

	"budgetinsights/internal/core"
)

func TestMonthTotal(t *testing.T) {
	txs := []core.Transaction{
		tx("a", 2025, 1, 1, 10.25),
		tx("b", 2025, 1, 31, 4.75),
		tx("c", 2024, 12, 31, 100),
		tx("d", 2024, 1, 15, 1000), // same month, different year
	}

	tests := []struct {
		name  string
		txs   []core.Transaction
		month core.Date
		want  int64
	}{
		{"sums matching month", txs, core.NewDate(2025, 1, 20), 1500},
		{"previous month", txs, core.NewDate(2024, 12, 1), 10000},
		{"no matches", txs, core.NewDate(2025, 3, 1), 0},
		{"empty input", nil, january, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthTotal(tt.txs, tt.month); got.Cents != tt.want {
				t.Errorf("MonthTotal() = %d cents, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestMonthTotalIgnoresCreatedAt(t *testing.T) {
	late := tx("late", 2024, 12, 30, 40)
	late.CreatedAt = time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	if got := MonthTotal([]core.Transaction{late}, january); got.Cents != 0 {
		t.Fatalf("transaction dated December counted in January: %d", got.Cents)
	}
	if got := MonthTotal([]core.Transaction{late}, core.NewDate(2024, 12, 1)); got.Cents != 4000 {
		t.Fatalf("MonthTotal(December) = %d, want 4000", got.Cents)
	}
}

func TestCountInMonth(t *testing.T) {
	txs := append(repeat("jan", 3, 2025, 1, 5), repeat("dec", 2, 2024, 12, 5)...)
	if got := CountInMonth(txs, january); got != 3 {
		t.Fatalf("CountInMonth(January) = %d, want 3", got)
	}
}

func TestWindowMonths(t *testing.T) {
	got := windowMonths(january, 3)
	want := []string{"2024-11", "2024-12", "2025-01"}
	for i, m := range got {
		if m.MonthLabel() != want[i] {
			t.Fatalf("windowMonths()[%d] = %s, want %s", i, m.MonthLabel(), want[i])
		}
	}
}
