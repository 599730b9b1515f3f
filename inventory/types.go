package inventory

// StockRecord is the current available quantity for one book.
//
// INVARIANT: Quantity >= 0 at all times, under any concurrency.
// Mutated only through Ledger operations - never directly by callers.
type StockRecord struct {
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// Line is a (book, quantity) pair as seen by the stock ledger:
// the unit of both availability checks and commits.
type Line struct {
	BookID   string
	Quantity int
}
