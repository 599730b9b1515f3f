/*
intake.go - Order intake state machine

PURPOSE:
  Coordinates the acceptance of an order:

    Received -> Validated -> StockChecked -> Recorded -> CommitScheduled

  The caller is answered at CommitScheduled - BEFORE the stock decrement
  runs. That is the latency/consistency trade this system makes on
  purpose: accept fast, reconcile stock out of band. The only residual
  inconsistency this allows is "order accepted, shortage discovered
  later"; it can never drive stock negative (see inventory/ledger.go).

FAILURE ASYMMETRY:
  Everything that can fail before CommitScheduled fails synchronously,
  with no side effects to undo (validation and the stock check write
  nothing; a failed Append means stock was never touched). Once the
  order is recorded and the commit enqueued, nothing about that commit's
  fate ever reaches the submitter - its outcome is visible only through
  the Recorder, the metrics, and the dead-letter store.

SEE ALSO:
  - runner.go: executes the scheduled commits
  - errors.go: the taxonomy and the client/server split
*/
package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/observe"
)

// CommitScheduler accepts deferred stock-commit jobs. Implemented by
// CommitRunner; tests substitute a synchronous stub.
type CommitScheduler interface {
	Enqueue(job CommitJob) error
}

// Intake accepts orders and serves the read side.
type Intake struct {
	Stock    inventory.Ledger
	Log      Log
	Commits  CommitScheduler
	Recorder observe.Recorder
	Metrics  *observe.Metrics
}

func NewIntake(stock inventory.Ledger, log Log, commits CommitScheduler, recorder observe.Recorder, metrics *observe.Metrics) *Intake {
	if recorder == nil {
		recorder = observe.NopRecorder{}
	}
	return &Intake{
		Stock:    stock,
		Log:      log,
		Commits:  commits,
		Recorder: recorder,
		Metrics:  metrics,
	}
}

// Submit runs the intake state machine for one order. On success the
// returned orderID is fresh and unique, the order is durably recorded,
// and its stock commit is scheduled but not necessarily executed.
func (in *Intake) Submit(ctx context.Context, items []Item) (string, error) {
	// Received -> Validated
	if len(items) == 0 {
		in.reject("empty_order", ErrEmptyOrder)
		return "", ErrEmptyOrder
	}
	if err := validateItems(items); err != nil {
		in.reject("invalid_line", err)
		return "", err
	}

	// Validated -> StockChecked
	stockLines := toStockLines(items)
	ok, err := in.Stock.HasAvailability(ctx, stockLines)
	if err != nil {
		checkErr := &AvailabilityCheckError{Cause: err}
		in.reject("availability_check_failed", checkErr)
		return "", checkErr
	}
	if !ok {
		in.reject("insufficient_stock", inventory.ErrInsufficientStock)
		return "", inventory.ErrInsufficientStock
	}

	// StockChecked -> Recorded
	orderID := uuid.NewString()
	lines := make([]OrderLine, len(items))
	for i, item := range items {
		lines[i] = OrderLine{OrderID: orderID, BookID: item.BookID, Quantity: item.Quantity}
	}
	if err := in.Log.Append(ctx, orderID, lines); err != nil {
		persistErr := &PersistError{Cause: err}
		in.reject("persist_failed", persistErr)
		return "", persistErr
	}

	// Recorded -> CommitScheduled
	// The order is already durable; a scheduling failure cannot un-accept
	// it, so it is recorded for reconciliation and hidden from the caller.
	if err := in.Commits.Enqueue(CommitJob{OrderID: orderID, Lines: stockLines}); err != nil {
		in.Recorder.Record(observe.LevelError, "commit scheduling failed", observe.Fields{
			"order_id": orderID,
			"error":    err.Error(),
		})
	}

	in.Recorder.Record(observe.LevelInfo, "order accepted", observe.Fields{
		"order_id": orderID,
		"lines":    len(lines),
	})
	if in.Metrics != nil {
		in.Metrics.OrdersAccepted.Inc()
	}
	return orderID, nil
}

// GetOrders returns every recorded order keyed by its ID.
func (in *Intake) GetOrders(ctx context.Context) (map[string][]Item, error) {
	lines, err := in.Log.ScanAll(ctx)
	if err != nil {
		readErr := &ReadError{Cause: err}
		in.Recorder.Record(observe.LevelError, "order scan failed", observe.Fields{
			"error": err.Error(),
		})
		return nil, readErr
	}
	return Group(lines), nil
}

func (in *Intake) reject(reason string, err error) {
	level := observe.LevelWarn
	if !IsClientError(err) {
		level = observe.LevelError
	}
	in.Recorder.Record(level, "order rejected", observe.Fields{
		"reason": reason,
		"error":  err.Error(),
	})
	if in.Metrics != nil {
		in.Metrics.OrdersRejected.WithLabelValues(reason).Inc()
	}
}

func validateItems(items []Item) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item.BookID == "" {
			return &InvalidLineError{BookID: item.BookID, Quantity: item.Quantity, Reason: "book id is empty"}
		}
		if item.Quantity <= 0 {
			return &InvalidLineError{BookID: item.BookID, Quantity: item.Quantity, Reason: "quantity must be positive"}
		}
		if _, dup := seen[item.BookID]; dup {
			return &InvalidLineError{BookID: item.BookID, Quantity: item.Quantity, Reason: "book repeated in order"}
		}
		seen[item.BookID] = struct{}{}
	}
	return nil
}

func toStockLines(items []Item) []inventory.Line {
	lines := make([]inventory.Line, len(items))
	for i, item := range items {
		lines[i] = inventory.Line{BookID: item.BookID, Quantity: item.Quantity}
	}
	return lines
}
