package ledger

import (
	"slices"
	"strings"
	"time"
)

// CategoryAll is the sentinel that bypasses category and type criteria.
const CategoryAll = "all"

// Criteria describes optional receipt predicates. Zero-valued fields place
// no constraint; supplied fields combine with AND.
type Criteria struct {
	// Search matches receipts whose name contains the text, ignoring case.
	Search string

	// Category must match exactly. Empty or CategoryAll bypasses.
	Category string

	// Type must match the receipt type tag; receipts without a tag compare
	// as TypeManual. Empty or CategoryAll bypasses.
	Type string

	// DateFrom and DateTo bound the receipt date, each usable on its own.
	// DateTo is inclusive through the end of its calendar day.
	DateFrom time.Time
	DateTo   time.Time

	// MinAmount and MaxAmount are inclusive bounds as decimal text
	// ("12.34" or "12,34"). Text that does not parse places no bound.
	MinAmount string
	MaxAmount string

	// Categories restricts to members of the set. An empty set or a set
	// containing CategoryAll bypasses.
	Categories []string
}

// Filter returns the receipts matching every supplied criterion, preserving
// their relative order.
func Filter(receipts []Receipt, c Criteria) []Receipt {
	matched := make([]Receipt, 0, len(receipts))
	for _, r := range receipts {
		if c.matches(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

func (c Criteria) matches(r Receipt) bool {
	if c.Search != "" && !strings.Contains(strings.ToLower(r.Name), strings.ToLower(c.Search)) {
		return false
	}
	if c.Category != "" && c.Category != CategoryAll && r.Category != c.Category {
		return false
	}
	if c.Type != "" && c.Type != CategoryAll && receiptType(r) != c.Type {
		return false
	}
	if !c.DateFrom.IsZero() && r.Date.Before(c.DateFrom) {
		return false
	}
	if !c.DateTo.IsZero() && r.Date.After(endOfDay(c.DateTo)) {
		return false
	}
	if low, err := ParseCents(c.MinAmount); err == nil && r.Amount < low {
		return false
	}
	if high, err := ParseCents(c.MaxAmount); err == nil && r.Amount > high {
		return false
	}
	if len(c.Categories) > 0 && !slices.Contains(c.Categories, CategoryAll) && !slices.Contains(c.Categories, r.Category) {
		return false
	}
	return true
}

// receiptType reads the type tag, treating an absent tag as TypeManual
func receiptType(r Receipt) string {
	if r.Type == "" {
		return TypeManual
	}
	return r.Type
}

// endOfDay extends t to the last instant of its calendar day
func endOfDay(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return day.Add(24*time.Hour - time.Nanosecond)
}
