package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/orders"
	"github.com/warp/bookstore/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func putStock(t *testing.T, store *sqlite.Store, bookID string, quantity int) {
	t.Helper()
	require.NoError(t, store.Put(context.Background(), inventory.StockRecord{
		BookID:   bookID,
		Title:    "title of " + bookID,
		Quantity: quantity,
	}))
}

// =============================================================================
// STOCK STORE
// =============================================================================

func TestStock_PutAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	putStock(t, store, "A", 7)

	record, err := store.Get(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "A", record.BookID)
	assert.Equal(t, "title of A", record.Title)
	assert.Equal(t, 7, record.Quantity)
}

func TestStock_GetMissing_ReturnsNil(t *testing.T) {
	store := newTestStore(t)

	record, err := store.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestStock_Snapshot_OmitsUnknownBooks(t *testing.T) {
	store := newTestStore(t)
	putStock(t, store, "A", 5)
	putStock(t, store, "B", 0)

	quantities, err := store.Snapshot(context.Background(), []string{"A", "B", "ghost"})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"A": 5, "B": 0}, quantities)
}

func TestStock_DecrementIfAvailable(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	putStock(t, store, "A", 5)

	require.NoError(t, store.DecrementIfAvailable(ctx, "A", 3))

	record, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 2, record.Quantity)
}

func TestStock_Decrement_Insufficient(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	putStock(t, store, "A", 2)

	err := store.DecrementIfAvailable(ctx, "A", 3)

	var insufficientErr *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficientErr)
	assert.Equal(t, "A", insufficientErr.BookID)
	assert.Equal(t, 2, insufficientErr.Available)
	assert.Equal(t, 3, insufficientErr.Requested)

	record, getErr := store.Get(ctx, "A")
	require.NoError(t, getErr)
	assert.Equal(t, 2, record.Quantity, "failed decrement must not change stock")
}

func TestStock_Decrement_UnknownBook(t *testing.T) {
	store := newTestStore(t)

	err := store.DecrementIfAvailable(context.Background(), "ghost", 1)

	var unknownErr *inventory.UnknownBookError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, "ghost", unknownErr.BookID)
}

func TestStock_Decrement_ConcurrentNeverNegative(t *testing.T) {
	// GIVEN: One book with quantity 20
	// WHEN: 30 goroutines each decrement 1 concurrently
	// THEN: Exactly 20 succeed, final quantity is 0

	store := newTestStore(t)
	ctx := context.Background()
	putStock(t, store, "A", 20)

	var wg sync.WaitGroup
	var successes atomic.Int64
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.DecrementIfAvailable(ctx, "A", 1); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 20, successes.Load())

	record, err := store.Get(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, record.Quantity)
}

// =============================================================================
// ORDER STORE
// =============================================================================

func TestOrders_AppendAndScan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	lines := []orders.OrderLine{
		{OrderID: "O1", BookID: "A", Quantity: 2},
		{OrderID: "O1", BookID: "B", Quantity: 3},
	}
	require.NoError(t, store.AppendLines(ctx, lines))

	scanned, err := store.ScanLines(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, lines, scanned)
}

func TestOrders_DuplicateLine_Rejected(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendLines(ctx, []orders.OrderLine{
		{OrderID: "O1", BookID: "A", Quantity: 2},
	}))

	err := store.AppendLines(ctx, []orders.OrderLine{
		{OrderID: "O1", BookID: "A", Quantity: 5},
	})

	assert.ErrorIs(t, err, orders.ErrDuplicateOrderLine)
}

func TestOrders_DuplicateWithinBatch_NothingStored(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.AppendLines(ctx, []orders.OrderLine{
		{OrderID: "O1", BookID: "A", Quantity: 1},
		{OrderID: "O1", BookID: "A", Quantity: 2},
	})
	require.ErrorIs(t, err, orders.ErrDuplicateOrderLine)

	scanned, scanErr := store.ScanLines(ctx)
	require.NoError(t, scanErr)
	assert.Empty(t, scanned, "failed batch must be all-or-nothing")
}

func TestOrders_SameBookDifferentOrders_Allowed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendLines(ctx, []orders.OrderLine{{OrderID: "O1", BookID: "A", Quantity: 1}}))
	require.NoError(t, store.AppendLines(ctx, []orders.OrderLine{{OrderID: "O2", BookID: "A", Quantity: 1}}))

	scanned, err := store.ScanLines(ctx)
	require.NoError(t, err)
	assert.Len(t, scanned, 2)
}

// =============================================================================
// FAILURE STORE
// =============================================================================

func TestFailures_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	failedAt := time.Date(2026, time.March, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordFailure(ctx, orders.CommitFailure{
		OrderID:  "O1",
		BookID:   "A",
		Quantity: 3,
		Reason:   "insufficient stock for book A: available 1, requested 3",
		FailedAt: failedAt,
	}))
	require.NoError(t, store.RecordFailure(ctx, orders.CommitFailure{
		OrderID:  "O2",
		Reason:   "stock backend down",
		FailedAt: failedAt.Add(time.Minute),
	}))

	failures, err := store.ListFailures(ctx)
	require.NoError(t, err)
	require.Len(t, failures, 2)

	assert.Equal(t, "O1", failures[0].OrderID)
	assert.Equal(t, "A", failures[0].BookID)
	assert.Equal(t, 3, failures[0].Quantity)
	assert.True(t, failures[0].FailedAt.Equal(failedAt))

	assert.Equal(t, "O2", failures[1].OrderID)
	assert.Empty(t, failures[1].BookID)
}

// =============================================================================
// SEEDING
// =============================================================================

func TestSeed_IdempotentAndPreservesDecrements(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Seed(ctx))

	seeded, err := store.Snapshot(ctx, []string{"1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3"})
	require.NoError(t, err)
	require.Equal(t, 10, seeded["1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3"])

	require.NoError(t, store.DecrementIfAvailable(ctx, "1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3", 4))
	require.NoError(t, store.Seed(ctx), "re-seeding must not error")

	after, err := store.Snapshot(ctx, []string{"1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3"})
	require.NoError(t, err)
	assert.Equal(t, 6, after["1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3"], "seed must not overwrite live quantities")
}

// =============================================================================
// LEDGER OVER SQLITE - sanity that the contracts compose
// =============================================================================

func TestLedger_OverSQLite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	putStock(t, store, "A", 5)

	ledger := inventory.NewLedger(store)

	ok, err := ledger.HasAvailability(ctx, []inventory.Line{{BookID: "A", Quantity: 5}})
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, ledger.Commit(ctx, []inventory.Line{{BookID: "A", Quantity: 5}}))

	err = ledger.Commit(ctx, []inventory.Line{{BookID: "A", Quantity: 1}})
	assert.True(t, errors.Is(err, inventory.ErrInsufficientStock))
}
