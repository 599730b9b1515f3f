/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the HTTP boundary, decoupled from the domain types so
  the wire contract can evolve without touching the core.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Semantic validation (positive quantities, duplicates) lives in the
  intake, not here. DTOs are pure data carriers.
*/
package api

// OrderLineRequest is one line of an incoming order.
type OrderLineRequest struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// OrderAcceptedDTO is the success response for a submitted order.
type OrderAcceptedDTO struct {
	OrderID string `json:"order_id"`
}

// OrderItemDTO is one (book, quantity) pair in a grouped order listing.
type OrderItemDTO struct {
	BookID   string `json:"book_id"`
	Quantity int    `json:"quantity"`
}

// StockDTO is a stock record in API responses.
type StockDTO struct {
	BookID   string `json:"book_id"`
	Title    string `json:"title"`
	Quantity int    `json:"quantity"`
}

// CommitFailureDTO is one dead-lettered stock commit.
type CommitFailureDTO struct {
	OrderID  string `json:"order_id"`
	BookID   string `json:"book_id,omitempty"`
	Quantity int    `json:"quantity,omitempty"`
	Reason   string `json:"reason"`
	FailedAt string `json:"failed_at"`
}

// ErrorDTO is the uniform error response body.
type ErrorDTO struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
