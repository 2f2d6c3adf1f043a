// Package storetest holds the behaviour every ports.InvoiceStore must show.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing/internal/core"
	"invoicing/internal/ports"
)

// Factory builds an empty store whose default invoice date comes from now.
type Factory func(t *testing.T, now func() time.Time) ports.InvoiceStore

var fixedNow = time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC)

func invoice(ref string, amount int64, date time.Time) core.Invoice {
	return core.Invoice{
		Customer:  "ACME",
		Amount:    decimal.NewFromInt(amount),
		Reference: ref,
		Date:      date,
		Items: []core.LineItem{
			{SKU: "SKU1", Qty: decimal.NewFromInt(2)},
			{SKU: "SKU2", Qty: decimal.RequireFromString("0.5")},
		},
	}
}

// Run exercises the store contract against stores built by factory.
func Run(t *testing.T, factory Factory) {
	ctx := context.Background()
	newStore := func(t *testing.T) ports.InvoiceStore {
		return factory(t, func() time.Time { return fixedNow })
	}

	t.Run("insert then read", func(t *testing.T) {
		s := newStore(t)
		in := invoice("REF-1", 100, time.Date(2025, 5, 1, 10, 0, 0, 123, time.UTC))

		stored, err := s.Insert(ctx, in)
		require.NoError(t, err)
		require.NotEmpty(t, stored.ID)

		got, err := s.FindByID(ctx, stored.ID)
		require.NoError(t, err)
		assertSameInvoice(t, stored, got)
		assert.Equal(t, in.Customer, got.Customer)
		assert.Equal(t, in.Reference, got.Reference)
		assert.True(t, in.Amount.Equal(got.Amount))
		assert.True(t, in.Date.Equal(got.Date))
	})

	t.Run("insert assigns unique ids and default date", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Insert(ctx, invoice("REF-1", 1, time.Time{}))
		require.NoError(t, err)
		b, err := s.Insert(ctx, invoice("REF-1", 1, time.Time{}))
		require.NoError(t, err)

		assert.NotEqual(t, a.ID, b.ID)
		assert.True(t, a.Date.Equal(fixedNow), "default date %s", a.Date)
	})

	t.Run("insert rejects invalid invoices", func(t *testing.T) {
		s := newStore(t)
		bad := invoice("REF-1", 1, fixedNow)
		bad.Items = nil
		_, err := s.Insert(ctx, bad)
		require.Error(t, err)
		assert.True(t, errors.Is(err, core.ErrValidation))

		all, err := s.FindByFilter(ctx, core.Filter{})
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		s := newStore(t)
		_, err := s.FindByID(ctx, "does-not-exist")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})

	t.Run("empty filter returns everything", func(t *testing.T) {
		s := newStore(t)
		ids := map[string]bool{}
		for i, d := range []time.Time{
			time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
			fixedNow,
			time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC),
		} {
			inv, err := s.Insert(ctx, invoice("REF", int64(i), d))
			require.NoError(t, err)
			ids[inv.ID] = true
		}

		all, err := s.FindByFilter(ctx, core.Filter{})
		require.NoError(t, err)
		require.Len(t, all, len(ids))
		for _, inv := range all {
			assert.True(t, ids[inv.ID])
			assert.Len(t, inv.Items, 2)
		}
	})

	t.Run("bounds are inclusive", func(t *testing.T) {
		s := newStore(t)
		start := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
		end := start.Add(24 * time.Hour)

		refs := map[string]time.Time{
			"before-start": start.Add(-time.Nanosecond),
			"at-start":     start,
			"middle":       start.Add(6 * time.Hour),
			"at-end":       end,
			"after-end":    end.Add(time.Nanosecond),
		}
		for ref, d := range refs {
			_, err := s.Insert(ctx, invoice(ref, 1, d))
			require.NoError(t, err)
		}

		got, err := s.FindByFilter(ctx, core.Filter{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"at-start", "middle", "at-end"}, references(got))

		got, err = s.FindByFilter(ctx, core.Filter{StartDate: &start})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"at-start", "middle", "at-end", "after-end"}, references(got))

		got, err = s.FindByFilter(ctx, core.Filter{EndDate: &end})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"before-start", "at-start", "middle", "at-end"}, references(got))
	})

	t.Run("results are ordered by date", func(t *testing.T) {
		s := newStore(t)
		for i := 5; i > 0; i-- {
			_, err := s.Insert(ctx, invoice("R", int64(i), fixedNow.Add(time.Duration(i)*time.Minute)))
			require.NoError(t, err)
		}
		got, err := s.FindByFilter(ctx, core.Filter{})
		require.NoError(t, err)
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].Date.Before(got[i-1].Date))
		}

		again, err := s.FindByFilter(ctx, core.Filter{})
		require.NoError(t, err)
		assert.Equal(t, ids(got), ids(again))
	})

	t.Run("stored invoices are isolated from caller mutation", func(t *testing.T) {
		s := newStore(t)
		in := invoice("REF", 1, fixedNow)
		stored, err := s.Insert(ctx, in)
		require.NoError(t, err)
		in.Items[0].SKU = "mutated"
		stored.Items[1].SKU = "mutated"

		got, err := s.FindByID(ctx, stored.ID)
		require.NoError(t, err)
		assert.Equal(t, "SKU1", got.Items[0].SKU)
		assert.Equal(t, "SKU2", got.Items[1].SKU)
	})
}

func assertSameInvoice(t *testing.T, want, got core.Invoice) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Customer, got.Customer)
	assert.Equal(t, want.Reference, got.Reference)
	assert.True(t, want.Amount.Equal(got.Amount), "amount %s != %s", want.Amount, got.Amount)
	assert.True(t, want.Date.Equal(got.Date), "date %s != %s", want.Date, got.Date)
	require.Len(t, got.Items, len(want.Items))
	for i := range want.Items {
		assert.Equal(t, want.Items[i].SKU, got.Items[i].SKU)
		assert.True(t, want.Items[i].Qty.Equal(got.Items[i].Qty))
	}
}

func references(invs []core.Invoice) []string {
	out := make([]string, len(invs))
	for i, inv := range invs {
		out[i] = inv.Reference
	}
	return out
}

func ids(invs []core.Invoice) []string {
	out := make([]string, len(invs))
	for i, inv := range invs {
		out[i] = inv.ID
	}
	return out
}
