// Package memory provides in-memory store implementations for tests
// and development.
package memory

import (
	"context"
	"sync"

	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/orders"
)

// =============================================================================
// STOCK STORE - In-memory inventory.Store
// =============================================================================

// Stock implements inventory.Store. The mutex makes every decrement an
// exclusive check-then-subtract, which is all the non-negative invariant
// needs from a single-process store.
type Stock struct {
	mu      sync.RWMutex
	records map[string]inventory.StockRecord
}

func NewStock() *Stock {
	return &Stock{records: make(map[string]inventory.StockRecord)}
}

func (s *Stock) Get(_ context.Context, bookID string) (*inventory.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[bookID]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// Snapshot reads all requested quantities under one lock, so the result
// is a single consistent view.
func (s *Stock) Snapshot(_ context.Context, bookIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quantities := make(map[string]int, len(bookIDs))
	for _, id := range bookIDs {
		if record, ok := s.records[id]; ok {
			quantities[id] = record.Quantity
		}
	}
	return quantities, nil
}

func (s *Stock) DecrementIfAvailable(_ context.Context, bookID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[bookID]
	if !ok {
		return &inventory.UnknownBookError{BookID: bookID}
	}
	if record.Quantity < quantity {
		return &inventory.InsufficientStockError{
			BookID:    bookID,
			Available: record.Quantity,
			Requested: quantity,
		}
	}
	record.Quantity -= quantity
	s.records[bookID] = record
	return nil
}

func (s *Stock) Put(_ context.Context, record inventory.StockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[record.BookID] = record
	return nil
}

// =============================================================================
// ORDER STORE - In-memory orders.Store + orders.FailureStore
// =============================================================================

// Orders implements orders.Store and orders.FailureStore.
type Orders struct {
	mu       sync.RWMutex
	lines    []orders.OrderLine
	seen     map[lineKey]bool
	failures []orders.CommitFailure
}

type lineKey struct {
	OrderID string
	BookID  string
}

func NewOrders() *Orders {
	return &Orders{seen: make(map[lineKey]bool)}
}

// AppendLines stores the batch all-or-nothing: the uniqueness check runs
// over the whole batch before anything is written.
func (o *Orders) AppendLines(_ context.Context, lines []orders.OrderLine) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	staged := make(map[lineKey]bool, len(lines))
	for _, line := range lines {
		k := lineKey{OrderID: line.OrderID, BookID: line.BookID}
		if o.seen[k] || staged[k] {
			return orders.ErrDuplicateOrderLine
		}
		staged[k] = true
	}

	for _, line := range lines {
		o.lines = append(o.lines, line)
		o.seen[lineKey{OrderID: line.OrderID, BookID: line.BookID}] = true
	}
	return nil
}

func (o *Orders) ScanLines(_ context.Context) ([]orders.OrderLine, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]orders.OrderLine, len(o.lines))
	copy(result, o.lines)
	return result, nil
}

func (o *Orders) RecordFailure(_ context.Context, failure orders.CommitFailure) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.failures = append(o.failures, failure)
	return nil
}

func (o *Orders) ListFailures(_ context.Context) ([]orders.CommitFailure, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	result := make([]orders.CommitFailure, len(o.failures))
	copy(result, o.failures)
	return result, nil
}
