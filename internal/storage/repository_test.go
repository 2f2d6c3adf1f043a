package storage

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"invoicing/internal/core"
	"invoicing/internal/log"
	"invoicing/internal/ports"
	"invoicing/internal/storage/storetest"
)

func newTestRepository(t *testing.T, opts ...Option) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "nested", "invoices.db"), opts...)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepositoryContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) ports.InvoiceStore {
		return newTestRepository(t, WithClock(now))
	})
}

func TestSQLiteRepository_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stored, err := repo.Insert(context.Background(), core.Invoice{
		Customer:  "ACME",
		Amount:    decimal.RequireFromString("12.34"),
		Reference: "REF",
		Items:     []core.LineItem{{SKU: "A", Qty: decimal.NewFromInt(1)}},
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	repo.Close()

	// Migrations must be a no-op the second time.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()

	got, err := repo.FindByID(context.Background(), stored.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if !got.Amount.Equal(decimal.RequireFromString("12.34")) {
		t.Errorf("amount = %s, want 12.34", got.Amount)
	}
}

func TestSQLiteRepository_ClosedDatabaseIsPersistenceError(t *testing.T) {
	repo := newTestRepository(t)
	repo.Close()

	_, err := repo.FindByFilter(context.Background(), core.Filter{})
	if err == nil {
		t.Fatal("expected error from closed database")
	}
	if !errors.Is(err, core.ErrPersistence) {
		t.Errorf("expected ErrPersistence, got %v", err)
	}
}

func TestClampNanos(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{"epoch", time.Unix(0, 0), 0},
		{"far past", time.Date(1000, 1, 1, 0, 0, 0, 0, time.UTC), core.MinDate.UnixNano()},
		{"far future", time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC), core.MaxDate.UnixNano()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clampNanos(tt.in); got != tt.want {
				t.Errorf("clampNanos(%s) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestSQLiteRepository_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Level: slog.LevelDebug, Output: &buf, Component: "test"})

	repo := newTestRepository(t, WithLogger(logger))
	if _, err := repo.Insert(context.Background(), core.Invoice{
		Customer:  "ACME",
		Amount:    decimal.NewFromInt(5),
		Reference: "REF-LOG",
		Items:     []core.LineItem{{SKU: "A", Qty: decimal.NewFromInt(1)}},
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"Invoice schema migrated", "Invoice saved to SQLite", "component=storage", "reference=REF-LOG"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
