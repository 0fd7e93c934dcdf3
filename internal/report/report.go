// Package report derives summary output from filtered receipt sets.
package report

import (
	"cmp"
	"slices"
	"time"

	"gastos/internal/ledger"
)

// CategoryExpense is one report row: a category present in the filtered
// set with its summed amount
type CategoryExpense struct {
	Category   string `json:"category"`
	Amount     int64  `json:"amount"` // Amount in cents
	Percentage int    `json:"percentage"`
}

// Report summarizes a filtered receipt set over a date range
type Report struct {
	From               time.Time         `json:"from"`
	To                 time.Time         `json:"to"`
	TotalSpent         int64             `json:"total_spent"` // Amount in cents
	Entries            int               `json:"entries"`
	Deposits           int64             `json:"deposits"` // Amount in cents
	Average            int64             `json:"average"`  // Amount in cents
	ExpensesByCategory []CategoryExpense `json:"expenses_by_category"`
}

// Build aggregates receipts into a Report for the range [from, to]. The
// caller filters the set beforehand; from and to only annotate the output.
// Rows are sorted descending by amount and zero-amount rows are dropped.
func Build(receipts []ledger.Receipt, from, to time.Time) Report {
	rep := Report{
		From:               from,
		To:                 to,
		Entries:            len(receipts),
		ExpensesByCategory: make([]CategoryExpense, 0),
	}

	byCategory := make(map[string]int64)
	for _, r := range receipts {
		rep.TotalSpent += r.Amount
		byCategory[r.Category] += r.Amount
	}

	// Deposits stays 0: no flow produces deposit entries. The field is
	// part of the report shape.

	if rep.Entries > 0 {
		count := int64(rep.Entries)
		rep.Average = (rep.TotalSpent + count/2) / count
	}

	for category, amount := range byCategory {
		if amount == 0 {
			continue
		}
		rep.ExpensesByCategory = append(rep.ExpensesByCategory, CategoryExpense{
			Category:   category,
			Amount:     amount,
			Percentage: ledger.PercentOf(amount, rep.TotalSpent),
		})
	}

	slices.SortFunc(rep.ExpensesByCategory, func(a, b CategoryExpense) int {
		return cmp.Compare(b.Amount, a.Amount)
	})

	return rep
}
