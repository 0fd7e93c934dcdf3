package ledger

import (
	"errors"
	"fmt"
)

// ErrReceiptNotFound is returned by Receipt, UpdateReceipt and
// DeleteReceipt when no receipt matches the given id. Mutations make no
// persistence call in that case.
var ErrReceiptNotFound = errors.New("receipt not found")

// ErrInvalidAmount is returned when decimal amount text cannot be parsed.
var ErrInvalidAmount = errors.New("invalid amount")

// ValidationError describes rejected user input. It is raised before the
// service is called and is never persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
