package core

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Decimal bounds. Rendering a decimal expands its exponent into digits, so
// magnitudes and scales past these are rejected before anything formats them.
const (
	MaxDecimalScale  = 18
	MaxIntegerDigits = 38
)

// Dates outside this range cannot be represented as unix nanoseconds.
var (
	MinDate = time.Unix(0, math.MinInt64).UTC()
	MaxDate = time.Unix(0, math.MaxInt64).UTC()
)

type (
	LineItem struct {
		SKU string
		Qty decimal.Decimal
	}

	// Invoice is a recorded sales transaction. It is never updated once stored.
	Invoice struct {
		ID        string
		Customer  string
		Amount    decimal.Decimal
		Reference string
		Date      time.Time
		Items     []LineItem
	}

	// Filter selects invoices by date. Nil bounds are unbounded, set bounds are inclusive.
	Filter struct {
		StartDate *time.Time
		EndDate   *time.Time
	}
)

// Validate checks the invariants every stored invoice must hold.
// A zero Date is accepted: the store assigns one on insert.
func (i Invoice) Validate() error {
	if strings.TrimSpace(i.Customer) == "" {
		return &ValidationError{Field: "customer", Reason: "must not be empty"}
	}
	if strings.TrimSpace(i.Reference) == "" {
		return &ValidationError{Field: "reference", Reason: "must not be empty"}
	}
	if i.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	if reason := checkDecimalBounds(i.Amount); reason != "" {
		return &ValidationError{Field: "amount", Reason: reason}
	}
	if !i.Date.IsZero() && (i.Date.Before(MinDate) || i.Date.After(MaxDate)) {
		return &ValidationError{Field: "date", Reason: "out of supported range"}
	}
	if len(i.Items) == 0 {
		return &ValidationError{Field: "items", Reason: "at least one line item is required"}
	}
	for idx, item := range i.Items {
		if err := item.validate(); err != nil {
			err.Field = "items[" + strconv.Itoa(idx) + "]." + err.Field
			return err
		}
	}
	return nil
}

func (li LineItem) validate() *ValidationError {
	if strings.TrimSpace(li.SKU) == "" {
		return &ValidationError{Field: "sku", Reason: "must not be empty"}
	}
	// Zero is tolerated; only the sign is checked.
	if li.Qty.IsNegative() {
		return &ValidationError{Field: "qty", Reason: "must not be negative"}
	}
	if reason := checkDecimalBounds(li.Qty); reason != "" {
		return &ValidationError{Field: "qty", Reason: reason}
	}
	return nil
}

// checkDecimalBounds inspects only the coefficient and exponent, never the
// expanded value.
func checkDecimalBounds(d decimal.Decimal) string {
	exp := int64(d.Exponent())
	if exp < -MaxDecimalScale {
		return "must have at most " + strconv.Itoa(MaxDecimalScale) + " decimal places"
	}
	if int64(d.NumDigits())+exp > MaxIntegerDigits {
		return "must have at most " + strconv.Itoa(MaxIntegerDigits) + " integer digits"
	}
	return ""
}

// Clone returns a copy that shares no slice storage with i.
func (i Invoice) Clone() Invoice {
	out := i
	out.Items = append([]LineItem(nil), i.Items...)
	return out
}

// Contains reports whether t lies inside the filter bounds.
func (f Filter) Contains(t time.Time) bool {
	if f.StartDate != nil && t.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.After(*f.EndDate) {
		return false
	}
	return true
}

// IsEmpty returns true when neither bound is set.
func (f Filter) IsEmpty() bool {
	return f.StartDate == nil && f.EndDate == nil
}
