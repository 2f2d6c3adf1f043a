package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/cache"
	"invoicing/internal/core"
	"invoicing/internal/log"
	"invoicing/internal/storage/memory"
)

// countingStore counts FindByID calls that reach the store.
type countingStore struct {
	*memory.Store
	reads atomic.Int32
}

func (s *countingStore) FindByID(ctx context.Context, id string) (core.Invoice, error) {
	s.reads.Add(1)
	return s.Store.FindByID(ctx, id)
}

func sampleInvoice(amount int64, date time.Time) core.Invoice {
	return core.Invoice{
		Customer:  "ACME",
		Amount:    decimal.NewFromInt(amount),
		Reference: "INV-1",
		Date:      date,
		Items: []core.LineItem{
			{SKU: "SKU1", Qty: decimal.NewFromInt(2)},
			{SKU: "SKU2", Qty: decimal.RequireFromString("0.5")},
		},
	}
}

func TestInvoiceService_CreateAndGet(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc := NewInvoiceService(store, cache.NewLRUCache[core.Invoice](10, 0), log.Discard())
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, sampleInvoice(100, time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)))
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, int32(0), store.reads.Load(), "created invoice is served from cache")

	got.Items[0].SKU = "mutated"
	again, err := svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "SKU1", again.Items[0].SKU, "cached copy is isolated from callers")
}

func TestInvoiceService_GetReadsThrough(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	ctx := context.Background()
	stored, err := store.Insert(ctx, sampleInvoice(10, time.Time{}))
	require.NoError(t, err)

	svc := NewInvoiceService(store, cache.NewLRUCache[core.Invoice](10, 0), log.Discard())
	for i := 0; i < 3; i++ {
		_, err := svc.GetInvoice(ctx, stored.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), store.reads.Load())
}

func TestInvoiceService_WithoutCache(t *testing.T) {
	store := &countingStore{Store: memory.New()}
	svc := NewInvoiceService(store, nil, nil)
	ctx := context.Background()

	created, err := svc.CreateInvoice(ctx, sampleInvoice(10, time.Time{}))
	require.NoError(t, err)
	_, err = svc.GetInvoice(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), store.reads.Load())
}

func TestInvoiceService_Errors(t *testing.T) {
	svc := NewInvoiceService(memory.New(), cache.NewLRUCache[core.Invoice](10, 0), log.Discard())
	ctx := context.Background()

	_, err := svc.GetInvoice(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	bad := sampleInvoice(10, time.Time{})
	bad.Items = nil
	_, err = svc.CreateInvoice(ctx, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "items", verr.Field)
}

func TestInvoiceService_ListAndSummary(t *testing.T) {
	svc := NewInvoiceService(memory.New(), nil, log.Discard())
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2025, 1, d, 12, 0, 0, 0, time.UTC) }
	for _, tc := range []struct {
		amount int64
		date   time.Time
	}{{100, day(1)}, {50, day(2)}, {25, day(5)}} {
		_, err := svc.CreateInvoice(ctx, sampleInvoice(tc.amount, tc.date))
		require.NoError(t, err)
	}

	start, end := day(1), day(2)
	f := core.Filter{StartDate: &start, EndDate: &end}

	list, err := svc.ListInvoices(ctx, f)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.Before(list[1].Date))

	summary, err := svc.Summary(ctx, f)
	require.NoError(t, err)
	assert.True(t, summary.TotalSales.Equal(decimal.NewFromInt(150)))
	assert.True(t, summary.Quantity("SKU1").Equal(decimal.NewFromInt(4)))
	assert.True(t, summary.Quantity("SKU2").Equal(decimal.NewFromInt(1)))

	all, err := svc.Summary(ctx, core.Filter{})
	require.NoError(t, err)
	assert.True(t, all.TotalSales.Equal(decimal.NewFromInt(175)))
}
