/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements inventory.Store, orders.Store, and orders.FailureStore on a
  single SQLite database. The same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  book_stock:      one row per book, the live quantity
  order_items:     append-only order lines, (order_id, book_id) unique
  commit_failures: dead letters from deferred stock commits

NON-NEGATIVE ENFORCEMENT:
  The stock decrement is a single conditional UPDATE:

    UPDATE book_stock SET quantity = quantity - ?
    WHERE book_id = ? AND quantity >= ?

  SQLite serializes writers, so two racing decrements of the same book
  cannot both see the pre-decrement quantity; the loser matches zero
  rows and is reported as insufficient. A CHECK constraint backs the
  invariant up at the schema level.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements touch order_items.

WAL MODE:
  The database is opened with WAL so readers don't block behind the
  writer and crash recovery is cleaner.

USAGE:
  store, err := sqlite.New("./data/bookstore.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - inventory/ledger.go: interface contracts and invariants
  - store/memory/memory.go: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/orders"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: keeps ":memory:" databases coherent (each pool
	// connection would otherwise see its own empty database) and avoids
	// SQLITE_BUSY under write contention.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Stock (live quantities, mutated only via DecrementIfAvailable/Put)
	CREATE TABLE IF NOT EXISTS book_stock (
		book_id  TEXT PRIMARY KEY,
		title    TEXT NOT NULL DEFAULT '',
		quantity INTEGER NOT NULL CHECK (quantity >= 0)
	);

	-- Order lines (append-only)
	CREATE TABLE IF NOT EXISTS order_items (
		order_id   TEXT NOT NULL,
		book_id    TEXT NOT NULL,
		quantity   INTEGER NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (order_id, book_id)
	);

	CREATE INDEX IF NOT EXISTS idx_order_items_order
		ON order_items(order_id);

	-- Dead letters from deferred stock commits
	CREATE TABLE IF NOT EXISTS commit_failures (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id  TEXT NOT NULL,
		book_id   TEXT,
		quantity  INTEGER,
		reason    TEXT NOT NULL,
		failed_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_commit_failures_order
		ON commit_failures(order_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// STOCK STORE (inventory.Store interface)
// =============================================================================

// Get returns the stock record for bookID, or nil if absent.
func (s *Store) Get(ctx context.Context, bookID string) (*inventory.StockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var record inventory.StockRecord
	err := s.db.QueryRowContext(ctx,
		"SELECT book_id, title, quantity FROM book_stock WHERE book_id = ?",
		bookID,
	).Scan(&record.BookID, &record.Title, &record.Quantity)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock record: %w", err)
	}
	return &record, nil
}

// Snapshot returns the current quantities for the requested books in a
// single query, so the caller sees one consistent view.
func (s *Store) Snapshot(ctx context.Context, bookIDs []string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	quantities := make(map[string]int, len(bookIDs))
	if len(bookIDs) == 0 {
		return quantities, nil
	}

	placeholders := strings.Repeat("?,", len(bookIDs))
	query := fmt.Sprintf(
		"SELECT book_id, quantity FROM book_stock WHERE book_id IN (%s)",
		placeholders[:len(placeholders)-1],
	)

	args := make([]any, len(bookIDs))
	for i, id := range bookIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var quantity int
		if err := rows.Scan(&id, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan stock row: %w", err)
		}
		quantities[id] = quantity
	}
	return quantities, rows.Err()
}

// DecrementIfAvailable atomically subtracts quantity from one book. The
// conditional WHERE makes check-and-subtract a single step; a miss is
// classified by re-reading the row.
func (s *Store) DecrementIfAvailable(ctx context.Context, bookID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx,
		"UPDATE book_stock SET quantity = quantity - ? WHERE book_id = ? AND quantity >= ?",
		quantity, bookID, quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read decrement result: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Zero rows matched: either the book doesn't exist or it fell short.
	var available int
	err = s.db.QueryRowContext(ctx,
		"SELECT quantity FROM book_stock WHERE book_id = ?", bookID,
	).Scan(&available)
	if err == sql.ErrNoRows {
		return &inventory.UnknownBookError{BookID: bookID}
	}
	if err != nil {
		return fmt.Errorf("failed to classify decrement miss: %w", err)
	}
	return &inventory.InsufficientStockError{
		BookID:    bookID,
		Available: available,
		Requested: quantity,
	}
}

// Put creates or replaces a stock record.
func (s *Store) Put(ctx context.Context, record inventory.StockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_stock (book_id, title, quantity) VALUES (?, ?, ?)
		ON CONFLICT(book_id) DO UPDATE SET title = excluded.title, quantity = excluded.quantity
	`, record.BookID, record.Title, record.Quantity)
	if err != nil {
		return fmt.Errorf("failed to put stock record: %w", err)
	}
	return nil
}

// =============================================================================
// ORDER STORE (orders.Store interface)
// =============================================================================

// AppendLines stores order lines atomically: either the whole batch is
// written or none of it.
func (s *Store) AppendLines(ctx context.Context, lines []orders.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, line := range lines {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, book_id, quantity, created_at) VALUES (?, ?, ?, ?)",
			line.OrderID, line.BookID, line.Quantity, createdAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return orders.ErrDuplicateOrderLine
			}
			return fmt.Errorf("failed to append order line: %w", err)
		}
	}

	return tx.Commit()
}

// ScanLines returns every stored order line.
func (s *Store) ScanLines(ctx context.Context) ([]orders.OrderLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT order_id, book_id, quantity FROM order_items",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan order lines: %w", err)
	}
	defer rows.Close()

	var lines []orders.OrderLine
	for rows.Next() {
		var line orders.OrderLine
		if err := rows.Scan(&line.OrderID, &line.BookID, &line.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// =============================================================================
// FAILURE STORE (orders.FailureStore interface)
// =============================================================================

// RecordFailure persists a commit dead letter.
func (s *Store) RecordFailure(ctx context.Context, failure orders.CommitFailure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO commit_failures (order_id, book_id, quantity, reason, failed_at) VALUES (?, ?, ?, ?, ?)",
		failure.OrderID,
		nullString(failure.BookID),
		failure.Quantity,
		failure.Reason,
		failure.FailedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to record commit failure: %w", err)
	}
	return nil
}

// ListFailures returns all commit dead letters, oldest first.
func (s *Store) ListFailures(ctx context.Context) ([]orders.CommitFailure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT order_id, book_id, quantity, reason, failed_at FROM commit_failures ORDER BY id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list commit failures: %w", err)
	}
	defer rows.Close()

	var failures []orders.CommitFailure
	for rows.Next() {
		var (
			failure  orders.CommitFailure
			bookID   sql.NullString
			failedAt string
		)
		if err := rows.Scan(&failure.OrderID, &bookID, &failure.Quantity, &failure.Reason, &failedAt); err != nil {
			return nil, fmt.Errorf("failed to scan commit failure: %w", err)
		}
		failure.BookID = bookID.String
		failure.FailedAt, _ = time.Parse(time.RFC3339, failedAt)
		failures = append(failures, failure)
	}
	return failures, rows.Err()
}

// =============================================================================
// SEEDING
// =============================================================================

// Seed loads a small demo catalog. Existing records are left untouched.
func (s *Store) Seed(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := []inventory.StockRecord{
		{BookID: "ae1666d6-6100-4ef0-9037-b45dd0d5bb0e", Title: "adipisicing culpa Lorem laboris adipisicing", Quantity: 0},
		{BookID: "828d69e5-0b33-4b0b-9633-e1b459f04ad9", Title: "mollit occaecat magna proident sunt", Quantity: 2},
		{BookID: "1f5ee5e6-eef2-4a2d-b4bb-600a0e10b7b3", Title: "sit occaecat sint velit id", Quantity: 10},
		{BookID: "f2d9bce1-ad82-4206-a6a4-7b06eb7b0c89", Title: "do consequat cillum nostrud ullamco", Quantity: 25},
		{BookID: "0b3a7a9d-c01b-4c0c-8c6d-4f4256798cc0", Title: "aute ipsum nulla reprehenderit dolore", Quantity: 7},
	}

	for _, record := range records {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO book_stock (book_id, title, quantity) VALUES (?, ?, ?)
			ON CONFLICT(book_id) DO NOTHING
		`, record.BookID, record.Title, record.Quantity)
		if err != nil {
			return fmt.Errorf("failed to seed stock: %w", err)
		}
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
