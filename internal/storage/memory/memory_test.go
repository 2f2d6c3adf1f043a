package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicing/internal/core"
	"invoicing/internal/ports"
	"invoicing/internal/storage/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) ports.InvoiceStore {
		return NewWithClock(now)
	})
}

func TestMemoryStoreLen(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}
	_, err := s.Insert(context.Background(), core.Invoice{
		Customer:  "c",
		Amount:    decimal.NewFromInt(1),
		Reference: "r",
		Items:     []core.LineItem{{SKU: "s", Qty: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 invoice, got %d", s.Len())
	}
}
