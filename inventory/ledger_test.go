package inventory_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestLedger(stock map[string]int) *inventory.DefaultLedger {
	store := memory.NewStock()
	for id, quantity := range stock {
		store.Put(context.Background(), inventory.StockRecord{BookID: id, Quantity: quantity})
	}
	return inventory.NewLedger(store)
}

func line(bookID string, quantity int) inventory.Line {
	return inventory.Line{BookID: bookID, Quantity: quantity}
}

func quantityOf(t *testing.T, ledger inventory.Ledger, bookID string) int {
	t.Helper()
	record, err := ledger.Get(context.Background(), bookID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record == nil {
		t.Fatalf("no stock record for %s", bookID)
	}
	return record.Quantity
}

// =============================================================================
// AVAILABILITY TESTS
// =============================================================================

func TestHasAvailability_AllLinesCovered(t *testing.T) {
	// GIVEN: Stock {A:5, B:3}
	// WHEN: Checking an order for 5 of A and 3 of B
	// THEN: Available

	ledger := newTestLedger(map[string]int{"A": 5, "B": 3})

	ok, err := ledger.HasAvailability(context.Background(), []inventory.Line{line("A", 5), line("B", 3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Error("expected availability for fully covered order")
	}
}

func TestHasAvailability_OneLineShort(t *testing.T) {
	// GIVEN: Stock {A:5, B:3}
	// WHEN: One line requests more than its book has
	// THEN: Not available, regardless of the other lines

	ledger := newTestLedger(map[string]int{"A": 5, "B": 3})

	ok, err := ledger.HasAvailability(context.Background(), []inventory.Line{line("A", 1), line("B", 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected no availability when a line exceeds stock")
	}
}

func TestHasAvailability_UnknownBookCountsAsUnavailable(t *testing.T) {
	ledger := newTestLedger(map[string]int{"A": 5})

	ok, err := ledger.HasAvailability(context.Background(), []inventory.Line{line("missing", 1)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected unknown book to count as unavailable")
	}
}

func TestHasAvailability_IsReadOnly(t *testing.T) {
	// GIVEN: Stock {A:5}
	// WHEN: Checking availability
	// THEN: The check reserves nothing; quantity is unchanged

	ledger := newTestLedger(map[string]int{"A": 5})

	ledger.HasAvailability(context.Background(), []inventory.Line{line("A", 5)})

	if got := quantityOf(t, ledger, "A"); got != 5 {
		t.Errorf("expected quantity 5 after check, got %d", got)
	}
}

// =============================================================================
// COMMIT TESTS
// =============================================================================

func TestCommit_DecrementsEachLine(t *testing.T) {
	ledger := newTestLedger(map[string]int{"A": 5, "B": 3})

	err := ledger.Commit(context.Background(), []inventory.Line{line("A", 2), line("B", 3)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := quantityOf(t, ledger, "A"); got != 3 {
		t.Errorf("expected A=3, got %d", got)
	}
	if got := quantityOf(t, ledger, "B"); got != 0 {
		t.Errorf("expected B=0, got %d", got)
	}
}

func TestCommit_InsufficientStock_ReportsBook(t *testing.T) {
	ledger := newTestLedger(map[string]int{"A": 1})

	err := ledger.Commit(context.Background(), []inventory.Line{line("A", 2)})

	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	var insufficientErr *inventory.InsufficientStockError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("expected InsufficientStockError, got %T", err)
	}
	if insufficientErr.BookID != "A" || insufficientErr.Available != 1 || insufficientErr.Requested != 2 {
		t.Errorf("unexpected error detail: %+v", insufficientErr)
	}
	if got := quantityOf(t, ledger, "A"); got != 1 {
		t.Errorf("failed single-line commit must not change stock, got %d", got)
	}
}

func TestCommit_UnknownBook(t *testing.T) {
	ledger := newTestLedger(map[string]int{"A": 5})

	err := ledger.Commit(context.Background(), []inventory.Line{line("missing", 1)})

	if !errors.Is(err, inventory.ErrUnknownBook) {
		t.Fatalf("expected ErrUnknownBook, got %v", err)
	}
	var unknownErr *inventory.UnknownBookError
	if !errors.As(err, &unknownErr) || unknownErr.BookID != "missing" {
		t.Errorf("expected UnknownBookError for 'missing', got %v", err)
	}
}

func TestCommit_PartialOnMidLineFailure(t *testing.T) {
	// GIVEN: Stock {A:5, B:1, C:5}
	// WHEN: Committing lines A, B, C where B falls short
	// THEN: A stays decremented, B and C are untouched (no rollback)

	ledger := newTestLedger(map[string]int{"A": 5, "B": 1, "C": 5})

	err := ledger.Commit(context.Background(), []inventory.Line{
		line("A", 2), line("B", 3), line("C", 1),
	})

	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := quantityOf(t, ledger, "A"); got != 3 {
		t.Errorf("expected A decremented to 3, got %d", got)
	}
	if got := quantityOf(t, ledger, "B"); got != 1 {
		t.Errorf("expected B untouched at 1, got %d", got)
	}
	if got := quantityOf(t, ledger, "C"); got != 5 {
		t.Errorf("expected C untouched at 5, got %d", got)
	}
}

// =============================================================================
// CONCURRENCY TESTS - the non-negative invariant under racing commits
// =============================================================================

func TestCommit_ConcurrentSingleBook_NeverNegative(t *testing.T) {
	// GIVEN: One book with quantity 100
	// WHEN: 150 goroutines each commit 1 unit concurrently
	// THEN: Exactly 100 succeed and the final quantity is 0, never negative

	ledger := newTestLedger(map[string]int{"A": 100})
	ctx := context.Background()

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 150; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Commit(ctx, []inventory.Line{line("A", 1)}); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := successes.Load(); got != 100 {
		t.Errorf("expected exactly 100 successful commits, got %d", got)
	}
	if got := quantityOf(t, ledger, "A"); got != 0 {
		t.Errorf("expected final quantity 0, got %d", got)
	}
}

func TestCommit_ConcurrentEqualSized_AtMostFloorWinners(t *testing.T) {
	// GIVEN: One book with quantity 5
	// WHEN: 10 goroutines each commit 2 units concurrently
	// THEN: At most floor(5/2)=2 succeed; final = 5 - 2*successes >= 0

	ledger := newTestLedger(map[string]int{"A": 5})
	ctx := context.Background()

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ledger.Commit(ctx, []inventory.Line{line("A", 2)}); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	won := int(successes.Load())
	if won > 2 {
		t.Errorf("expected at most 2 winners, got %d", won)
	}
	final := quantityOf(t, ledger, "A")
	if final != 5-2*won {
		t.Errorf("expected final quantity %d, got %d", 5-2*won, final)
	}
	if final < 0 {
		t.Errorf("quantity went negative: %d", final)
	}
}

func TestCommit_ConcurrentDistinctBooks_Independent(t *testing.T) {
	// GIVEN: Two books
	// WHEN: Concurrent commits target different books
	// THEN: Both streams fully apply

	ledger := newTestLedger(map[string]int{"A": 50, "B": 50})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ledger.Commit(ctx, []inventory.Line{line("A", 1)})
		}()
		go func() {
			defer wg.Done()
			ledger.Commit(ctx, []inventory.Line{line("B", 1)})
		}()
	}
	wg.Wait()

	if got := quantityOf(t, ledger, "A"); got != 0 {
		t.Errorf("expected A=0, got %d", got)
	}
	if got := quantityOf(t, ledger, "B"); got != 0 {
		t.Errorf("expected B=0, got %d", got)
	}
}
