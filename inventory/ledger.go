/*
ledger.go - Stock ledger: atomic check, commit, and lookup

PURPOSE:
  The Ledger owns every mutation of book stock. Order intake checks
  availability through it, the deferred commit runner decrements through
  it, and nothing else ever touches a StockRecord's quantity.

CRITICAL INVARIANTS:
  1. NON-NEGATIVE: quantity never goes below zero, under any interleaving
  2. EXCLUSIVE MUTATION: all writes go through Commit, one book at a time
  3. PER-BOOK ATOMICITY: "check remaining >= requested, then subtract" is
     a single atomic step per book (conditional update in the store)

THE RACE WINDOW (deliberate):
  HasAvailability reads a consistent snapshot, but a commit scheduled by
  an earlier order may land after the snapshot is taken. Two orders can
  both pass their check against the same book; the loser is discovered at
  commit time, after its order was already accepted. That drift is the
  accepted cost of answering callers before stock settles. What is NOT
  accepted - ever - is a negative quantity, which is why Commit delegates
  the decrement to the store's atomic conditional update rather than
  doing a read-modify-write here.

PARTIAL COMMITS:
  Commit decrements line by line and stops at the first failure. Lines
  already decremented stay decremented; there is no rollback. Callers
  treat a commit failure as requiring reconciliation, never a retry.

SEE ALSO:
  - store/sqlite/sqlite.go: conditional-update implementation
  - store/memory/memory.go: in-memory implementation for tests
  - orders/runner.go: the only caller of Commit
*/
package inventory

import "context"

// =============================================================================
// STORE - Persistence interface for stock records
// =============================================================================

// Store handles persistence of stock records. Implementations must make
// DecrementIfAvailable atomic per book: concurrent decrements of the same
// book serialize, and none may drive the quantity negative.
type Store interface {
	// Get returns the record for bookID, or nil if absent.
	Get(ctx context.Context, bookID string) (*StockRecord, error)

	// Snapshot returns the current quantity for each requested book in a
	// single consistent read. Books with no record are omitted.
	Snapshot(ctx context.Context, bookIDs []string) (map[string]int, error)

	// DecrementIfAvailable atomically subtracts quantity from bookID's
	// record if at least that much remains. Fails with
	// *InsufficientStockError or *UnknownBookError otherwise.
	DecrementIfAvailable(ctx context.Context, bookID string, quantity int) error

	// Put creates or replaces a stock record. Seeding and administration
	// only - order flow never calls this.
	Put(ctx context.Context, record StockRecord) error
}

// =============================================================================
// LEDGER - Stock operations used by order intake and the commit runner
// =============================================================================

// Ledger exposes the three stock operations the order subsystem needs.
type Ledger interface {
	// HasAvailability reports whether every line can currently be
	// satisfied. A book with no stock record counts as unavailable.
	// Read-only; the answer is a snapshot, not a reservation.
	HasAvailability(ctx context.Context, lines []Line) (bool, error)

	// Commit decrements stock for each line. Per-book atomic; partial on
	// failure (earlier lines stay decremented).
	Commit(ctx context.Context, lines []Line) error

	// Get returns the record for bookID, or nil if absent.
	Get(ctx context.Context, bookID string) (*StockRecord, error)
}

// DefaultLedger implements Ledger over a Store.
type DefaultLedger struct {
	Store Store
}

func NewLedger(store Store) *DefaultLedger {
	return &DefaultLedger{Store: store}
}

func (l *DefaultLedger) HasAvailability(ctx context.Context, lines []Line) (bool, error) {
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.BookID)
	}

	quantities, err := l.Store.Snapshot(ctx, ids)
	if err != nil {
		return false, err
	}

	for _, line := range lines {
		available, ok := quantities[line.BookID]
		if !ok || available < line.Quantity {
			return false, nil
		}
	}
	return true, nil
}

func (l *DefaultLedger) Commit(ctx context.Context, lines []Line) error {
	for _, line := range lines {
		if err := l.Store.DecrementIfAvailable(ctx, line.BookID, line.Quantity); err != nil {
			// Earlier lines stay decremented. See PARTIAL COMMITS above.
			return err
		}
	}
	return nil
}

func (l *DefaultLedger) Get(ctx context.Context, bookID string) (*StockRecord, error) {
	return l.Store.Get(ctx, bookID)
}
