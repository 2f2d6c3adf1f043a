package ports

import (
	"context"

	"invoicing/internal/core"
)

// Ports for outbound adapters.
type (
	InvoiceWriter interface {
		// Insert validates and stores an invoice, assigning ID and a default Date.
		Insert(ctx context.Context, inv core.Invoice) (core.Invoice, error)
	}

	InvoiceReader interface {
		FindByID(ctx context.Context, id string) (core.Invoice, error)
		// FindByFilter returns invoices dated within the inclusive filter bounds,
		// ordered by date then id.
		FindByFilter(ctx context.Context, f core.Filter) ([]core.Invoice, error)
	}

	InvoiceStore interface {
		InvoiceWriter
		InvoiceReader
	}

	// SummaryPublisher delivers a report onto an outbound channel.
	SummaryPublisher interface {
		PublishReport(ctx context.Context, report core.Report, topic string) error
	}
)
