package insights

import (
	"budgetinsights/internal/core"
)

// MonthTotal sums the amounts of the transactions dated within month's
// calendar month. Only the transaction's own Date is considered, never
// CreatedAt.
func MonthTotal(txs []core.Transaction, month core.Date) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.Date.SameMonth(month) {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// CountInMonth returns how many transactions are dated within month.
func CountInMonth(txs []core.Transaction, month core.Date) int {
	n := 0
	for _, tx := range txs {
		if tx.Date.SameMonth(month) {
			n++
		}
	}
	return n
}

// windowMonths returns the n months ending with month, oldest first.
func windowMonths(month core.Date, n int) []core.Date {
	months := make([]core.Date, n)
	for i := 0; i < n; i++ {
		months[i] = month.AddMonths(i - n + 1)
	}
	return months
}
