package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"invoicing/internal/core"
	"invoicing/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
	newID   func() string
	logger  *log.Logger
}

// Option customizes a SQLiteRepository.
type Option func(*SQLiteRepository)

// WithLogger sets the logger for store and migration events.
func WithLogger(logger *log.Logger) Option {
	return func(r *SQLiteRepository) {
		if logger != nil {
			r.logger = logger.WithComponent(log.ComponentStorage)
		}
	}
}

// WithClock sets the clock used to date invoices inserted without a date.
func WithClock(now func() time.Time) Option {
	return func(r *SQLiteRepository) {
		r.now = now
	}
}

func NewSQLiteRepository(dbPath string, opts ...Option) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
		newID:   uuid.NewString,
		logger:  log.Default().WithComponent(log.ComponentStorage),
	}
	for _, opt := range opts {
		opt(repo)
	}

	if err := RunMigrations(dbPath, repo.logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert implements ports.InvoiceWriter
func (r *SQLiteRepository) Insert(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}

	stored := inv.Clone()
	stored.ID = r.newID()
	if stored.Date.IsZero() {
		stored.Date = r.now()
	}
	stored.Date = stored.Date.UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Invoice{}, persistenceErr("begin insert", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.CreateInvoice(ctx, Invoice{
		ID:        stored.ID,
		Customer:  stored.Customer,
		Amount:    stored.Amount,
		Reference: stored.Reference,
		DateNs:    stored.Date.UnixNano(),
	}); err != nil {
		return core.Invoice{}, persistenceErr("create invoice", err)
	}

	for pos, item := range stored.Items {
		if err := q.CreateInvoiceItem(ctx, InvoiceItem{
			InvoiceID: stored.ID,
			Position:  int64(pos),
			Sku:       item.SKU,
			Qty:       item.Qty,
		}); err != nil {
			return core.Invoice{}, persistenceErr("create invoice item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return core.Invoice{}, persistenceErr("commit insert", err)
	}

	r.logger.DebugContext(ctx, "Invoice saved to SQLite",
		"id", stored.ID,
		"reference", stored.Reference,
		"amount", stored.Amount.String(),
		"items", len(stored.Items))

	return stored, nil
}

// FindByID implements ports.InvoiceReader
func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (core.Invoice, error) {
	row, err := r.queries.GetInvoice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("get invoice %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, persistenceErr("get invoice", err)
	}

	items, err := r.queries.GetInvoiceItems(ctx, id)
	if err != nil {
		return core.Invoice{}, persistenceErr("get invoice items", err)
	}

	return toCoreInvoice(row, items), nil
}

// FindByFilter implements ports.InvoiceReader
func (r *SQLiteRepository) FindByFilter(ctx context.Context, f core.Filter) ([]core.Invoice, error) {
	params := DateRangeParams{FromNs: math.MinInt64, ToNs: math.MaxInt64}
	if f.StartDate != nil {
		params.FromNs = clampNanos(*f.StartDate)
	}
	if f.EndDate != nil {
		params.ToNs = clampNanos(*f.EndDate)
	}

	// Headers and items are read in one snapshot.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, persistenceErr("begin list", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	rows, err := q.ListInvoicesByDate(ctx, params)
	if err != nil {
		return nil, persistenceErr("list invoices", err)
	}
	itemRows, err := q.ListInvoiceItemsByDate(ctx, params)
	if err != nil {
		return nil, persistenceErr("list invoice items", err)
	}

	itemsByInvoice := make(map[string][]InvoiceItem, len(rows))
	for _, item := range itemRows {
		itemsByInvoice[item.InvoiceID] = append(itemsByInvoice[item.InvoiceID], item)
	}

	invoices := make([]core.Invoice, len(rows))
	for i, row := range rows {
		invoices[i] = toCoreInvoice(row, itemsByInvoice[row.ID])
	}

	r.logger.DebugContext(ctx, "Listed invoices from SQLite", "count", len(invoices))
	return invoices, nil
}

func toCoreInvoice(row Invoice, items []InvoiceItem) core.Invoice {
	inv := core.Invoice{
		ID:        row.ID,
		Customer:  row.Customer,
		Amount:    row.Amount,
		Reference: row.Reference,
		Date:      time.Unix(0, row.DateNs).UTC(),
		Items:     make([]core.LineItem, len(items)),
	}
	for i, item := range items {
		inv.Items[i] = core.LineItem{SKU: item.Sku, Qty: item.Qty}
	}
	return inv
}

// clampNanos maps bounds beyond the representable range onto its edges.
func clampNanos(t time.Time) int64 {
	if t.Before(core.MinDate) {
		return math.MinInt64
	}
	if t.After(core.MaxDate) {
		return math.MaxInt64
	}
	return t.UnixNano()
}

func persistenceErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}
