/*
log.go - Append-only order log

PURPOSE:
  The Log is the durable record of every accepted order's lines. An
  order exists exactly insofar as its lines exist here; there is no
  separate order row that could disagree with them.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete
  2. UNIQUE: one line per (order, book) pair, enforced on insert
  3. IMMUTABLE: a line, once written, never changes

SEE ALSO:
  - aggregate.go: read-side grouping over ScanAll
  - store/sqlite/sqlite.go: durable implementation
*/
package orders

import "context"

// =============================================================================
// STORE - Persistence interface for order lines
// =============================================================================

// Store handles persistence of order lines. Append-only.
type Store interface {
	// AppendLines durably stores the given lines. Fails with
	// ErrDuplicateOrderLine if any (order, book) pair already exists;
	// in that case no line of the batch is stored.
	AppendLines(ctx context.Context, lines []OrderLine) error

	// ScanLines returns every stored line. No ordering guarantee.
	ScanLines(ctx context.Context) ([]OrderLine, error)
}

// =============================================================================
// LOG - Order-facing wrapper over the store
// =============================================================================

// Log records accepted orders and serves the read-side scan.
type Log interface {
	// Append stores lines under orderID. Duplicate (order, book) pairs
	// are rejected as a uniqueness violation.
	Append(ctx context.Context, orderID string, lines []OrderLine) error

	// ScanAll returns every line ever appended.
	ScanAll(ctx context.Context) ([]OrderLine, error)
}

// DefaultLog implements Log over a Store.
type DefaultLog struct {
	Store Store
}

func NewLog(store Store) *DefaultLog {
	return &DefaultLog{Store: store}
}

func (l *DefaultLog) Append(ctx context.Context, orderID string, lines []OrderLine) error {
	stamped := make([]OrderLine, len(lines))
	for i, line := range lines {
		line.OrderID = orderID
		stamped[i] = line
	}
	return l.Store.AppendLines(ctx, stamped)
}

func (l *DefaultLog) ScanAll(ctx context.Context) ([]OrderLine, error) {
	return l.Store.ScanLines(ctx)
}
