package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicing/internal/core"
)

const (
	maxBodyBytes = 1 << 20
	dateOnly     = "2006-01-02"
)

type lineItemRequest struct {
	SKU string           `json:"sku"`
	Qty *decimal.Decimal `json:"qty"`
}

type invoiceRequest struct {
	Customer  string            `json:"customer"`
	Amount    *decimal.Decimal  `json:"amount"`
	Reference string            `json:"reference"`
	Date      string            `json:"date,omitempty"`
	Items     []lineItemRequest `json:"items"`
}

// decodeInvoice reads a create request. Presence checks happen here, the
// domain invariants are checked by the store.
func decodeInvoice(w http.ResponseWriter, r *http.Request) (core.Invoice, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req invoiceRequest
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			return core.Invoice{}, &core.ValidationError{Field: "body", Reason: "too large"}
		case errors.Is(err, io.EOF):
			return core.Invoice{}, &core.ValidationError{Field: "body", Reason: "must not be empty"}
		default:
			return core.Invoice{}, &core.ValidationError{Field: "body", Reason: "malformed JSON: " + err.Error()}
		}
	}
	if dec.More() {
		return core.Invoice{}, &core.ValidationError{Field: "body", Reason: "must contain a single JSON object"}
	}

	if req.Amount == nil {
		return core.Invoice{}, &core.ValidationError{Field: "amount", Reason: "is required"}
	}

	inv := core.Invoice{
		Customer:  strings.TrimSpace(req.Customer),
		Amount:    *req.Amount,
		Reference: strings.TrimSpace(req.Reference),
		Items:     make([]core.LineItem, len(req.Items)),
	}

	if req.Date != "" {
		date, err := parseTimestamp(req.Date, false)
		if err != nil {
			return core.Invoice{}, &core.ValidationError{Field: "date", Reason: err.Error()}
		}
		inv.Date = date
	}

	for i, item := range req.Items {
		if item.Qty == nil {
			return core.Invoice{}, &core.ValidationError{
				Field:  "items[" + strconv.Itoa(i) + "].qty",
				Reason: "is required",
			}
		}
		inv.Items[i] = core.LineItem{SKU: strings.TrimSpace(item.SKU), Qty: *item.Qty}
	}

	return inv, nil
}

// parseFilter reads the optional startDate and endDate query parameters.
// A date-only endDate covers the whole day.
func parseFilter(query url.Values) (core.Filter, error) {
	var f core.Filter

	if v := strings.TrimSpace(query.Get("startDate")); v != "" {
		start, err := parseTimestamp(v, false)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: "startDate", Reason: err.Error()}
		}
		f.StartDate = &start
	}
	if v := strings.TrimSpace(query.Get("endDate")); v != "" {
		end, err := parseTimestamp(v, true)
		if err != nil {
			return core.Filter{}, &core.ValidationError{Field: "endDate", Reason: err.Error()}
		}
		f.EndDate = &end
	}

	return f, nil
}

// parseTimestamp accepts RFC 3339 or YYYY-MM-DD (UTC). With endOfDay a
// date-only value resolves to the last nanosecond of that day.
func parseTimestamp(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC 3339 or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
