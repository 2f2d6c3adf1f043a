package storage

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Invoice is the invoices table row.
type Invoice struct {
	ID        string
	Customer  string
	Amount    decimal.Decimal
	Reference string
	DateNs    int64
}

// InvoiceItem is the invoice_items table row.
type InvoiceItem struct {
	InvoiceID string
	Position  int64
	Sku       string
	Qty       decimal.Decimal
}

const createInvoice = `INSERT INTO invoices (id, customer, amount, reference, date_ns)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateInvoice(ctx context.Context, arg Invoice) error {
	_, err := q.db.ExecContext(ctx, createInvoice,
		arg.ID,
		arg.Customer,
		arg.Amount,
		arg.Reference,
		arg.DateNs,
	)
	return err
}

const createInvoiceItem = `INSERT INTO invoice_items (invoice_id, position, sku, qty)
VALUES (?, ?, ?, ?)`

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg InvoiceItem) error {
	_, err := q.db.ExecContext(ctx, createInvoiceItem,
		arg.InvoiceID,
		arg.Position,
		arg.Sku,
		arg.Qty,
	)
	return err
}

const getInvoice = `SELECT id, customer, amount, reference, date_ns
FROM invoices
WHERE id = ?`

func (q *Queries) GetInvoice(ctx context.Context, id string) (Invoice, error) {
	row := q.db.QueryRowContext(ctx, getInvoice, id)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.Customer,
		&i.Amount,
		&i.Reference,
		&i.DateNs,
	)
	return i, err
}

const getInvoiceItems = `SELECT invoice_id, position, sku, qty
FROM invoice_items
WHERE invoice_id = ?
ORDER BY position`

func (q *Queries) GetInvoiceItems(ctx context.Context, invoiceID string) ([]InvoiceItem, error) {
	rows, err := q.db.QueryContext(ctx, getInvoiceItems, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoiceItems(rows)
}

type DateRangeParams struct {
	FromNs int64
	ToNs   int64
}

const listInvoicesByDate = `SELECT id, customer, amount, reference, date_ns
FROM invoices
WHERE date_ns >= ? AND date_ns <= ?
ORDER BY date_ns, id`

func (q *Queries) ListInvoicesByDate(ctx context.Context, arg DateRangeParams) ([]Invoice, error) {
	rows, err := q.db.QueryContext(ctx, listInvoicesByDate, arg.FromNs, arg.ToNs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		var i Invoice
		if err := rows.Scan(
			&i.ID,
			&i.Customer,
			&i.Amount,
			&i.Reference,
			&i.DateNs,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listInvoiceItemsByDate = `SELECT ii.invoice_id, ii.position, ii.sku, ii.qty
FROM invoice_items ii
JOIN invoices i ON i.id = ii.invoice_id
WHERE i.date_ns >= ? AND i.date_ns <= ?
ORDER BY ii.invoice_id, ii.position`

func (q *Queries) ListInvoiceItemsByDate(ctx context.Context, arg DateRangeParams) ([]InvoiceItem, error) {
	rows, err := q.db.QueryContext(ctx, listInvoiceItemsByDate, arg.FromNs, arg.ToNs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanInvoiceItems(rows)
}

func scanInvoiceItems(rows *sql.Rows) ([]InvoiceItem, error) {
	var items []InvoiceItem
	for rows.Next() {
		var i InvoiceItem
		if err := rows.Scan(
			&i.InvoiceID,
			&i.Position,
			&i.Sku,
			&i.Qty,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
