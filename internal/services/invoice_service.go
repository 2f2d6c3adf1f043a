package services

import (
	"context"
	"fmt"

	"invoicing/internal/cache"
	"invoicing/internal/core"
	"invoicing/internal/log"
	"invoicing/internal/ports"
)

// InvoiceService is the application facade over the invoice store.
// Invoices never change once stored, so lookups by id are served from an
// LRU cache without invalidation.
type InvoiceService struct {
	store  ports.InvoiceStore
	cache  cache.Cache[core.Invoice]
	logger *log.Logger
}

// NewInvoiceService creates the service. A nil cache disables caching.
func NewInvoiceService(store ports.InvoiceStore, c cache.Cache[core.Invoice], logger *log.Logger) *InvoiceService {
	if logger == nil {
		logger = log.Default()
	}
	return &InvoiceService{
		store:  store,
		cache:  c,
		logger: logger.WithComponent(log.ComponentInvoice),
	}
}

// CreateInvoice validates and stores an invoice, returning it with ID and Date set.
func (s *InvoiceService) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	stored, err := s.store.Insert(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(stored.ID, stored.Clone())
	}

	s.logger.InfoContext(ctx, "Invoice created",
		log.NewFields().
			WithOperation(log.OpCreate).
			WithInvoice(stored.ID, stored.Reference, stored.Amount.String(), len(stored.Items)).
			ToSlice()...)

	return stored, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	if s.cache != nil {
		if inv, ok := s.cache.Get(id); ok {
			return inv.Clone(), nil
		}
	}

	inv, err := s.store.FindByID(ctx, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(id, inv.Clone())
	}
	return inv, nil
}

// ListInvoices returns the invoices dated within the filter, ordered by date.
func (s *InvoiceService) ListInvoices(ctx context.Context, f core.Filter) ([]core.Invoice, error) {
	invoices, err := s.store.FindByFilter(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	s.logger.DebugContext(ctx, "Invoices listed", log.FieldOperation, log.OpList, log.FieldInvoices, len(invoices))
	return invoices, nil
}

// Summary aggregates the invoices dated within the filter on demand.
func (s *InvoiceService) Summary(ctx context.Context, f core.Filter) (core.ReportSummary, error) {
	invoices, err := s.store.FindByFilter(ctx, f)
	if err != nil {
		return core.ReportSummary{}, fmt.Errorf("summarize invoices: %w", err)
	}
	summary := core.Summarize(invoices)

	s.logger.DebugContext(ctx, "Summary computed",
		log.FieldOperation, log.OpSummary,
		log.FieldInvoices, len(invoices),
		log.FieldTotalSales, summary.TotalSales.String())

	return summary, nil
}
