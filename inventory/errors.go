/*
errors.go - Error types for stock operations

PURPOSE:
  All stock-related error types in one place. Callers match with
  errors.Is() against the sentinels; the structured types carry the
  failing book for logging and dead-lettering.

ERROR CATEGORIES:
  1. Availability errors - a commit (or check) found too little stock
  2. Identity errors     - a referenced book does not exist

USAGE:
  if errors.Is(err, inventory.ErrInsufficientStock) { ... }

  var insufficientErr *inventory.InsufficientStockError
  if errors.As(err, &insufficientErr) {
      log(insufficientErr.BookID)
  }
*/
package inventory

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientStock is returned when a requested quantity exceeds
	// what is currently available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrUnknownBook is returned when a referenced book has no stock record.
	ErrUnknownBook = errors.New("unknown book")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientStockError reports which book fell short during a commit.
type InsufficientStockError struct {
	BookID    string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for book %s: available %d, requested %d",
		e.BookID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// UnknownBookError reports a commit against a book with no stock record.
type UnknownBookError struct {
	BookID string
}

func (e *UnknownBookError) Error() string {
	return fmt.Sprintf("book %s not found in stock", e.BookID)
}

func (e *UnknownBookError) Unwrap() error {
	return ErrUnknownBook
}

// IsStockShortage returns true if the error is a per-book availability or
// identity failure (as opposed to an infrastructure failure).
func IsStockShortage(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrUnknownBook)
}
