package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gastos/internal/ledger"
	"gastos/internal/report"
)

// corsError writes a plain error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes a JSON error payload with CORS headers set
func jsonError(w http.ResponseWriter, err error, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// writeJSON writes v as the response body
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// receiptRequest is the JSON body for create and update. Money arrives as
// decimal text ("12.34" or "12,34") and the date as dd/mm/yyyy. Fields stay
// nil when absent so updates can tell "not sent" from "cleared".
type receiptRequest struct {
	Name          *string          `json:"name"`
	Amount        *string          `json:"amount"`
	Date          *string          `json:"date"`
	Category      *string          `json:"category"`
	PaymentMethod *string          `json:"payment_method"`
	Type          *string          `json:"type"`
	Status        *string          `json:"status"`
	Products      []productRequest `json:"products"`
	ImageURI      *string          `json:"image_uri"`
}

type productRequest struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// parseProducts validates and converts line items. Every supplied item
// needs a name, a parseable non-negative price and a quantity of at least 1.
func parseProducts(items []productRequest) ([]ledger.Product, error) {
	products := make([]ledger.Product, 0, len(items))
	for i, item := range items {
		name := strings.TrimSpace(item.Name)
		if name == "" {
			return nil, &ledger.ValidationError{Field: fmt.Sprintf("products[%d].name", i), Reason: "must not be empty"}
		}
		price, err := ledger.ParseCents(item.Price)
		if err != nil {
			return nil, &ledger.ValidationError{Field: fmt.Sprintf("products[%d].price", i), Reason: "must be a non-negative decimal"}
		}
		if item.Quantity < 1 {
			return nil, &ledger.ValidationError{Field: fmt.Sprintf("products[%d].quantity", i), Reason: "must be at least 1"}
		}
		products = append(products, ledger.Product{Name: name, Price: price, Quantity: item.Quantity})
	}
	return products, nil
}

// validateCreate checks a create body and builds the service input.
// Validation completes here; only valid input reaches the service.
func validateCreate(req receiptRequest) (ledger.ReceiptInput, error) {
	var input ledger.ReceiptInput

	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return input, &ledger.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	input.Name = strings.TrimSpace(*req.Name)

	if req.Date == nil || strings.TrimSpace(*req.Date) == "" {
		return input, &ledger.ValidationError{Field: "date", Reason: "must not be empty"}
	}
	date, err := ledger.ParseEntryDate(*req.Date)
	if err != nil {
		return input, &ledger.ValidationError{Field: "date", Reason: "expected dd/mm/yyyy"}
	}
	input.Date = date

	if req.Category == nil || *req.Category == "" {
		return input, &ledger.ValidationError{Field: "category", Reason: "no category selected"}
	}
	if !ledger.ValidCategory(*req.Category) {
		return input, &ledger.ValidationError{Field: "category", Reason: "unknown category"}
	}
	input.Category = *req.Category

	if req.PaymentMethod != nil && *req.PaymentMethod != "" {
		if !ledger.ValidPaymentMethod(*req.PaymentMethod) {
			return input, &ledger.ValidationError{Field: "payment_method", Reason: "unknown payment method"}
		}
		input.PaymentMethod = *req.PaymentMethod
	}

	input.Type = ledger.TypeManual
	if req.Type != nil && *req.Type != "" {
		if *req.Type != ledger.TypeManual && *req.Type != ledger.TypeFactura {
			return input, &ledger.ValidationError{Field: "type", Reason: "unknown type"}
		}
		input.Type = *req.Type
	}

	products, err := parseProducts(req.Products)
	if err != nil {
		return input, err
	}
	input.Products = products

	if input.Type == ledger.TypeManual && len(products) == 0 {
		return input, &ledger.ValidationError{Field: "products", Reason: "no valid line item"}
	}

	if len(products) == 0 {
		if req.Amount == nil {
			return input, &ledger.ValidationError{Field: "amount", Reason: "required without products"}
		}
		amount, err := ledger.ParseCents(*req.Amount)
		if err != nil {
			return input, &ledger.ValidationError{Field: "amount", Reason: "must be a decimal amount"}
		}
		input.Amount = amount
	}

	total := input.Amount
	if len(products) > 0 {
		total = ledger.SumProducts(products)
	}
	if total <= 0 {
		return input, &ledger.ValidationError{Field: "amount", Reason: "computed total must be positive"}
	}

	if req.ImageURI != nil {
		input.ImageURI = *req.ImageURI
	}

	return input, nil
}

// validatePatch checks an update body and builds the merge patch
func validatePatch(req receiptRequest) (ledger.ReceiptPatch, error) {
	var patch ledger.ReceiptPatch

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return patch, &ledger.ValidationError{Field: "name", Reason: "must not be empty"}
		}
		patch.Name = &name
	}
	if req.Amount != nil {
		amount, err := ledger.ParseCents(*req.Amount)
		if err != nil {
			return patch, &ledger.ValidationError{Field: "amount", Reason: "must be a decimal amount"}
		}
		patch.Amount = &amount
	}
	if req.Date != nil {
		date, err := ledger.ParseEntryDate(*req.Date)
		if err != nil {
			return patch, &ledger.ValidationError{Field: "date", Reason: "expected dd/mm/yyyy"}
		}
		patch.Date = &date
	}
	if req.Category != nil {
		if !ledger.ValidCategory(*req.Category) {
			return patch, &ledger.ValidationError{Field: "category", Reason: "unknown category"}
		}
		patch.Category = req.Category
	}
	if req.PaymentMethod != nil {
		if *req.PaymentMethod != "" && !ledger.ValidPaymentMethod(*req.PaymentMethod) {
			return patch, &ledger.ValidationError{Field: "payment_method", Reason: "unknown payment method"}
		}
		patch.PaymentMethod = req.PaymentMethod
	}
	if req.Type != nil {
		if *req.Type != ledger.TypeManual && *req.Type != ledger.TypeFactura {
			return patch, &ledger.ValidationError{Field: "type", Reason: "unknown type"}
		}
		patch.Type = req.Type
	}
	if req.Status != nil {
		patch.Status = req.Status
	}
	if req.Products != nil {
		products, err := parseProducts(req.Products)
		if err != nil {
			return patch, err
		}
		patch.Products = &products
	}
	if req.ImageURI != nil {
		patch.ImageURI = req.ImageURI
	}

	return patch, nil
}

// parseID reads the {id} path value
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// criteriaFromQuery reads the filter params q, category, type, from, to
// (YYYY-MM-DD), min, max (decimal text) and categories (comma separated)
func criteriaFromQuery(r *http.Request) (ledger.Criteria, error) {
	q := r.URL.Query()
	criteria := ledger.Criteria{
		Search:    q.Get("q"),
		Category:  q.Get("category"),
		Type:      q.Get("type"),
		MinAmount: q.Get("min"),
		MaxAmount: q.Get("max"),
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return ledger.Criteria{}, &ledger.ValidationError{Field: "from", Reason: "expected YYYY-MM-DD"}
		}
		criteria.DateFrom = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return ledger.Criteria{}, &ledger.ValidationError{Field: "to", Reason: "expected YYYY-MM-DD"}
		}
		criteria.DateTo = t
	}
	if raw := q.Get("categories"); raw != "" {
		criteria.Categories = strings.Split(raw, ",")
	}
	return criteria, nil
}

// handleListReceipts returns receipts, optionally filtered by query params
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		jsonError(w, err, http.StatusUnprocessableEntity)
		return
	}

	receipts := ledger.Filter(s.service.Receipts(), criteria)
	writeJSON(w, receipts)
}

// handleCreateReceipt handles manual receipt entry
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input, err := validateCreate(req)
	if err != nil {
		jsonError(w, err, http.StatusUnprocessableEntity)
		return
	}

	created, err := s.service.CreateReceipt(input)
	if err != nil {
		slog.Error("Error creating receipt", "error", err)
		jsonError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(created); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		corsError(w, "Invalid receipt ID", http.StatusBadRequest)
		return
	}
	receipt, err := s.service.Receipt(id)
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	writeJSON(w, receipt)
}

// handleUpdateReceipt merges a partial update onto one receipt
func (s *Server) handleUpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		corsError(w, "Invalid receipt ID", http.StatusBadRequest)
		return
	}

	var req receiptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	patch, err := validatePatch(req)
	if err != nil {
		jsonError(w, err, http.StatusUnprocessableEntity)
		return
	}

	updated, err := s.service.UpdateReceipt(id, patch)
	if err != nil {
		if errors.Is(err, ledger.ErrReceiptNotFound) {
			corsError(w, "Receipt not found", http.StatusNotFound)
			return
		}
		slog.Error("Error updating receipt", "id", id, "error", err)
		jsonError(w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(w, updated)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		corsError(w, "Invalid receipt ID", http.StatusBadRequest)
		return
	}
	if err := s.service.DeleteReceipt(id); err != nil {
		if errors.Is(err, ledger.ErrReceiptNotFound) {
			corsError(w, "Receipt not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting receipt", "id", id, "error", err)
		jsonError(w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleClearReceipts empties the whole ledger
func (s *Server) handleClearReceipts(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearAll(); err != nil {
		slog.Error("Error clearing receipts", "error", err)
		jsonError(w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// summaryResponse is the dashboard read model
type summaryResponse struct {
	TotalExpenses     int64             `json:"total_expenses"` // Amount in cents
	ReceiptCount      int               `json:"receipt_count"`
	AveragePerReceipt int64             `json:"average_per_receipt"` // Amount in cents
	Categories        []ledger.Category `json:"categories"`
	Loading           bool              `json:"loading"`
}

// handleSummary returns the dashboard totals and category aggregates
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.service.Snapshot()
	writeJSON(w, summaryResponse{
		TotalExpenses:     s.service.TotalExpenses(),
		ReceiptCount:      len(snap.Receipts),
		AveragePerReceipt: s.service.AveragePerReceipt(),
		Categories:        snap.Categories,
		Loading:           snap.Loading,
	})
}

// handleReport builds the period report over the filtered receipt set
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r)
	if err != nil {
		jsonError(w, err, http.StatusUnprocessableEntity)
		return
	}

	filtered := ledger.Filter(s.service.Receipts(), criteria)
	writeJSON(w, report.Build(filtered, criteria.DateFrom, criteria.DateTo))
}
