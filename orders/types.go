package orders

import "time"

// OrderLine is one persisted line of an order. Composite identity
// (OrderID, BookID) is unique; lines are append-only and immutable.
type OrderLine struct {
	OrderID  string `json:"order_id"`
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// Item is a (book, quantity) pair: the shape of incoming request lines
// and of grouped read-side output. An order is derived - it is nothing
// more than the set of lines sharing an OrderID.
type Item struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// CommitFailure is a dead-letter record of a deferred stock commit that
// could not be applied. The order it belongs to stays accepted; an
// external reconciliation process reads these and decides what to do.
type CommitFailure struct {
	OrderID  string    `json:"order_id"`
	BookID   string    `json:"book_id,omitempty"`
	Quantity int       `json:"quantity,omitempty"`
	Reason   string    `json:"reason"`
	FailedAt time.Time `json:"failed_at"`
}
