package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SKUQuantity is the total quantity sold for one sku.
type SKUQuantity struct {
	SKU string
	Qty decimal.Decimal
}

// ReportSummary aggregates a set of invoices.
// ItemsSummary holds one entry per distinct sku, sorted by sku.
type ReportSummary struct {
	TotalSales   decimal.Decimal
	ItemsSummary []SKUQuantity
}

// Summarize totals amounts and per-sku quantities. Decimal sums are exact,
// so the result does not depend on the order of invoices.
func Summarize(invoices []Invoice) ReportSummary {
	total := decimal.Zero
	bySKU := make(map[string]decimal.Decimal)

	for _, inv := range invoices {
		total = total.Add(inv.Amount)
		for _, item := range inv.Items {
			bySKU[item.SKU] = bySKU[item.SKU].Add(item.Qty)
		}
	}

	items := make([]SKUQuantity, 0, len(bySKU))
	for sku, qty := range bySKU {
		items = append(items, SKUQuantity{SKU: sku, Qty: qty})
	}
	sort.Slice(items, func(a, b int) bool { return items[a].SKU < items[b].SKU })

	return ReportSummary{TotalSales: total, ItemsSummary: items}
}

// Quantity returns the total for sku, or zero when the sku was not sold.
func (s ReportSummary) Quantity(sku string) decimal.Decimal {
	for _, item := range s.ItemsSummary {
		if item.SKU == sku {
			return item.Qty
		}
	}
	return decimal.Zero
}

// Equal compares two summaries by value.
func (s ReportSummary) Equal(other ReportSummary) bool {
	if !s.TotalSales.Equal(other.TotalSales) || len(s.ItemsSummary) != len(other.ItemsSummary) {
		return false
	}
	for i := range s.ItemsSummary {
		if s.ItemsSummary[i].SKU != other.ItemsSummary[i].SKU || !s.ItemsSummary[i].Qty.Equal(other.ItemsSummary[i].Qty) {
			return false
		}
	}
	return true
}

// Report is a summary stamped with the window it covers.
type Report struct {
	Summary     ReportSummary
	Window      Window
	GeneratedAt time.Time
}
