/*
handlers.go - HTTP handlers for order intake and stock inquiry

PURPOSE:
  Exposes the order/stock core over REST. Handles request parsing, JSON
  serialization, and status mapping; all business decisions happen in
  the intake and the ledger.

ENDPOINTS:
  POST /api/orders                 Submit a multi-item order
  GET  /api/orders                 All orders, grouped by order id
  GET  /api/stock/{bookID}         Stock record for one book
  GET  /api/admin/commit-failures  Dead-lettered stock commits

STATUS MAPPING:
  The split follows orders.IsClientError: the caller's fault (empty
  order, invalid line, insufficient stock) is 400, infrastructure
  failures are 500. Deferred commit failures never appear here at all -
  an accepted order is 200 regardless of how its commit later fares.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/bookstore/inventory"
	"github.com/warp/bookstore/orders"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Intake   *orders.Intake
	Stock    inventory.Ledger
	Failures orders.FailureStore
}

// NewHandler creates a new handler.
func NewHandler(intake *orders.Intake, stock inventory.Ledger, failures orders.FailureStore) *Handler {
	return &Handler{Intake: intake, Stock: stock, Failures: failures}
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// SubmitOrder accepts a multi-item order. On success the order is
// recorded and its stock commit scheduled; the response does not wait
// for the commit.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req []OrderLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	items := make([]orders.Item, len(req))
	for i, line := range req {
		items[i] = orders.Item{BookID: line.BookID, Quantity: line.Quantity}
	}

	orderID, err := h.Intake.Submit(r.Context(), items)
	if err != nil {
		if orders.IsClientError(err) {
			writeError(w, http.StatusBadRequest, "Order rejected", err)
		} else {
			writeError(w, http.StatusInternalServerError, "Order could not be processed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, OrderAcceptedDTO{OrderID: orderID})
}

// ListOrders returns every recorded order, grouped by order id.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.Intake.GetOrders(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list orders", err)
		return
	}

	dtos := make(map[string][]OrderItemDTO, len(grouped))
	for orderID, items := range grouped {
		lines := make([]OrderItemDTO, len(items))
		for i, item := range items {
			lines[i] = OrderItemDTO{BookID: item.BookID, Quantity: item.Quantity}
		}
		dtos[orderID] = lines
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STOCK HANDLERS
// =============================================================================

// GetStock returns the stock record for one book.
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")

	record, err := h.Stock.Get(r.Context(), bookID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get stock", err)
		return
	}
	if record == nil {
		writeError(w, http.StatusNotFound, "Book not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, StockDTO{
		BookID:   record.BookID,
		Title:    record.Title,
		Quantity: record.Quantity,
	})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// ListCommitFailures returns the dead-lettered stock commits for
// reconciliation tooling.
func (h *Handler) ListCommitFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.Failures.ListFailures(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list commit failures", err)
		return
	}

	dtos := make([]CommitFailureDTO, len(failures))
	for i, f := range failures {
		dtos[i] = CommitFailureDTO{
			OrderID:  f.OrderID,
			BookID:   f.BookID,
			Quantity: f.Quantity,
			Reason:   f.Reason,
			FailedAt: f.FailedAt.Format(time.RFC3339),
		}
	}

	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	dto := ErrorDTO{Error: message}
	if err != nil {
		dto.Details = err.Error()
	}
	writeJSON(w, status, dto)
}
