// Package http provides the JSON API over the invoice service.
//
// This file implements the Builder Pattern for JSON responses so every
// handler writes status, headers and body the same way.

package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"invoicing/internal/core"
	"invoicing/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	if b.body != nil {
		_ = json.NewEncoder(w).Encode(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a JSON error response with body {"error": message}.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded")
}

// writeServiceError maps service errors onto status codes. Only validation
// messages reach the client; anything unexpected is logged and hidden.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		BadRequestError(verr.Error()).Write(w)
	case errors.Is(err, core.ErrValidation):
		BadRequestError(err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("invoice not found").Write(w)
	default:
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", log.FieldError, err)
		InternalServerError().Write(w)
	}
}

type lineItemResponse struct {
	SKU string      `json:"sku"`
	Qty json.Number `json:"qty"`
}

type invoiceResponse struct {
	ID        string             `json:"id"`
	Customer  string             `json:"customer"`
	Amount    json.Number        `json:"amount"`
	Reference string             `json:"reference"`
	Date      time.Time          `json:"date"`
	Items     []lineItemResponse `json:"items"`
}

type summaryResponse struct {
	TotalSales   json.Number        `json:"totalSales"`
	ItemsSummary []lineItemResponse `json:"itemsSummary"`
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func toInvoiceResponse(inv core.Invoice) invoiceResponse {
	resp := invoiceResponse{
		ID:        inv.ID,
		Customer:  inv.Customer,
		Amount:    number(inv.Amount),
		Reference: inv.Reference,
		Date:      inv.Date,
		Items:     make([]lineItemResponse, len(inv.Items)),
	}
	for i, item := range inv.Items {
		resp.Items[i] = lineItemResponse{SKU: item.SKU, Qty: number(item.Qty)}
	}
	return resp
}

func toSummaryResponse(s core.ReportSummary) summaryResponse {
	resp := summaryResponse{
		TotalSales:   number(s.TotalSales),
		ItemsSummary: make([]lineItemResponse, len(s.ItemsSummary)),
	}
	for i, item := range s.ItemsSummary {
		resp.ItemsSummary[i] = lineItemResponse{SKU: item.SKU, Qty: number(item.Qty)}
	}
	return resp
}
