/*
runner.go - Deferred stock-commit worker pool

PURPOSE:
  Executes StockLedger.Commit off the request path. Submit enqueues one
  job per accepted order; a bounded pool of workers drains the queue.
  A job's outcome never reaches the submitter - it is reported to the
  Recorder and the metrics, and failures are persisted as dead letters
  for an external reconciliation process.

DESIGN:
  - Bounded channel of jobs; Enqueue blocks when it is full
    (backpressure instead of an unbounded goroutine per order)
  - Fixed worker goroutines started by Start, drained by Stop
  - No timeout and no automatic retry on a job: a failed commit is a
    dead letter, not a loop
  - Flush() waits until every enqueued job has been processed, so tests
    can assert post-commit state without racing the pool

USAGE:
  runner := NewCommitRunner(stock, failures, recorder, metrics, 4, 256)
  runner.Start()
  defer runner.Stop()

SEE ALSO:
  - intake.go: the only producer
  - inventory/ledger.go: partial-commit semantics of Commit
*/
package orders

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/observe"
)

// CommitJob is one order's pending stock decrement.
type CommitJob struct {
	OrderID string
	Lines   []inventory.Line
}

// FailureStore persists commit dead letters.
type FailureStore interface {
	RecordFailure(ctx context.Context, failure CommitFailure) error
	ListFailures(ctx context.Context) ([]CommitFailure, error)
}

// CommitRunner is the bounded worker pool behind CommitScheduler.
type CommitRunner struct {
	Stock    inventory.Ledger
	Failures FailureStore // optional
	Recorder observe.Recorder
	Metrics  *observe.Metrics // optional
	Workers  int

	jobs    chan CommitJob
	pending sync.WaitGroup
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
}

// NewCommitRunner creates a runner with the given pool size and queue
// capacity. Zero or negative values fall back to 4 workers / 256 jobs.
func NewCommitRunner(stock inventory.Ledger, failures FailureStore, recorder observe.Recorder, metrics *observe.Metrics, workers, queueSize int) *CommitRunner {
	if workers <= 0 {
		workers = 4
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if recorder == nil {
		recorder = observe.NopRecorder{}
	}
	return &CommitRunner{
		Stock:    stock,
		Failures: failures,
		Recorder: recorder,
		Metrics:  metrics,
		Workers:  workers,
		jobs:     make(chan CommitJob, queueSize),
	}
}

// Start launches the worker pool.
func (r *CommitRunner) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return
	}
	r.started = true

	for i := 0; i < r.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	r.Recorder.Record(observe.LevelInfo, "commit runner started", observe.Fields{
		"workers": r.Workers,
		"queue":   cap(r.jobs),
	})
}

// Stop closes the queue, lets the workers drain what is already
// enqueued, and waits for them to exit. Enqueue fails afterwards.
func (r *CommitRunner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	close(r.jobs)
	r.mu.Unlock()

	r.wg.Wait()
	r.Recorder.Record(observe.LevelInfo, "commit runner stopped", nil)
}

// Enqueue schedules a commit job. Blocks while the queue is full;
// returns ErrRunnerStopped after Stop.
func (r *CommitRunner) Enqueue(job CommitJob) error {
	// The send stays under the lock so Stop cannot close the channel
	// between the stopped check and the send. A full queue makes the
	// send block, but workers drain independently, so Stop only waits
	// its turn rather than deadlocking.
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return ErrRunnerStopped
	}
	r.pending.Add(1)
	if r.Metrics != nil {
		r.Metrics.CommitQueue.Inc()
	}
	r.jobs <- job
	return nil
}

// Flush blocks until every job enqueued so far has been processed.
// Synchronization hook for tests and shutdown; not part of the
// request path.
func (r *CommitRunner) Flush() {
	r.pending.Wait()
}

func (r *CommitRunner) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		if r.Metrics != nil {
			r.Metrics.CommitQueue.Dec()
		}
		r.process(job)
		r.pending.Done()
	}
}

func (r *CommitRunner) process(job CommitJob) {
	// No timeout: a commit is never abandoned part way, and never
	// retried by the runner.
	err := r.Stock.Commit(context.Background(), job.Lines)
	if err == nil {
		r.Recorder.Record(observe.LevelInfo, "stock committed", observe.Fields{
			"order_id": job.OrderID,
		})
		r.countOutcome(observe.OutcomeOK)
		return
	}

	commitErr := &CommitError{OrderID: job.OrderID, Cause: err}
	r.Recorder.Record(observe.LevelError, "stock commit failed", observe.Fields{
		"order_id": job.OrderID,
		"error":    commitErr.Error(),
	})
	r.countOutcome(classifyOutcome(err))
	r.deadLetter(job, err)
}

func (r *CommitRunner) deadLetter(job CommitJob, cause error) {
	if r.Failures == nil {
		return
	}

	failure := CommitFailure{
		OrderID:  job.OrderID,
		Reason:   cause.Error(),
		FailedAt: time.Now().UTC(),
	}

	var insufficientErr *inventory.InsufficientStockError
	var unknownErr *inventory.UnknownBookError
	switch {
	case errors.As(cause, &insufficientErr):
		failure.BookID = insufficientErr.BookID
		failure.Quantity = insufficientErr.Requested
	case errors.As(cause, &unknownErr):
		failure.BookID = unknownErr.BookID
		failure.Quantity = lineQuantity(job.Lines, unknownErr.BookID)
	}

	if err := r.Failures.RecordFailure(context.Background(), failure); err != nil {
		r.Recorder.Record(observe.LevelError, "dead letter write failed", observe.Fields{
			"order_id": job.OrderID,
			"error":    err.Error(),
		})
	}
}

func (r *CommitRunner) countOutcome(outcome string) {
	if r.Metrics != nil {
		r.Metrics.CommitOutcomes.WithLabelValues(outcome).Inc()
	}
}

func classifyOutcome(err error) string {
	switch {
	case errors.Is(err, inventory.ErrInsufficientStock):
		return observe.OutcomeInsufficientStock
	case errors.Is(err, inventory.ErrUnknownBook):
		return observe.OutcomeUnknownBook
	default:
		return observe.OutcomeError
	}
}

func lineQuantity(lines []inventory.Line, bookID string) int {
	for _, line := range lines {
		if line.BookID == bookID {
			return line.Quantity
		}
	}
	return 0
}
