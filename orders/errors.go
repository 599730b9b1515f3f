/*
errors.go - Error taxonomy for order intake

PURPOSE:
  All intake-facing error types in one place. The asymmetry that defines
  this subsystem lives here: every error a caller of Submit can see is a
  PRE-acceptance error with zero side effects to undo. Failures after
  acceptance (the deferred stock commit) never surface through these -
  they go to the observability sink and the dead-letter store only.

PROPAGATION POLICY:
  EmptyOrder, InvalidLine, insufficient stock  -> synchronous, no writes
  OrderPersistFailed                           -> synchronous, stock untouched
  ReadError                                    -> synchronous (read path)
  CommitError                                  -> runner-internal, logged only

  Client-error vs server-error mapping for the HTTP boundary is derived
  via IsClientError.
*/
package orders

import (
	"errors"
	"fmt"

	"github.com/warp/bookstore/inventory"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrEmptyOrder is returned when a submission carries no lines.
	ErrEmptyOrder = errors.New("order is empty")

	// ErrInvalidLine is returned when a request line is malformed
	// (non-positive quantity, or a book repeated within one order).
	ErrInvalidLine = errors.New("invalid order line")

	// ErrAvailabilityCheck is returned when the stock check itself failed,
	// as opposed to finding too little stock.
	ErrAvailabilityCheck = errors.New("availability check failed")

	// ErrOrderPersist is returned when the order could not be recorded.
	// No stock has been touched at that point; nothing to compensate.
	ErrOrderPersist = errors.New("order could not be recorded")

	// ErrOrderRead is returned when the read path could not scan the log.
	ErrOrderRead = errors.New("orders could not be read")

	// ErrDuplicateOrderLine is returned by the log when an
	// (order, book) pair is appended twice.
	ErrDuplicateOrderLine = errors.New("duplicate order line")

	// ErrRunnerStopped is returned by Enqueue after the runner shut down.
	ErrRunnerStopped = errors.New("commit runner stopped")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidLineError identifies the offending request line.
type InvalidLineError struct {
	BookID   string
	Quantity int
	Reason   string
}

func (e *InvalidLineError) Error() string {
	return fmt.Sprintf("invalid line for book %q: %s", e.BookID, e.Reason)
}

func (e *InvalidLineError) Unwrap() error {
	return ErrInvalidLine
}

// AvailabilityCheckError wraps the infrastructure failure behind a stock
// check. The cause is kept for logging; callers match the sentinel.
type AvailabilityCheckError struct {
	Cause error
}

func (e *AvailabilityCheckError) Error() string {
	return fmt.Sprintf("availability check failed: %v", e.Cause)
}

func (e *AvailabilityCheckError) Unwrap() error {
	return ErrAvailabilityCheck
}

// PersistError wraps the persistence failure behind an order append.
type PersistError struct {
	Cause error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("order could not be recorded: %v", e.Cause)
}

func (e *PersistError) Unwrap() error {
	return ErrOrderPersist
}

// ReadError wraps the failure behind a full-log scan.
type ReadError struct {
	Cause error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("orders could not be read: %v", e.Cause)
}

func (e *ReadError) Unwrap() error {
	return ErrOrderRead
}

// CommitError wraps the stock error a deferred commit died with. It is
// seen by the runner and the dead-letter store, never by the submitter.
type CommitError struct {
	OrderID string
	Cause   error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("stock commit for order %s failed: %v", e.OrderID, e.Cause)
}

func (e *CommitError) Unwrap() error {
	return e.Cause
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is the caller's fault: the
// HTTP boundary maps these to 4xx and everything else to 5xx.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyOrder) ||
		errors.Is(err, ErrInvalidLine) ||
		errors.Is(err, inventory.ErrInsufficientStock)
}
