package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"invoicing/internal/core"
)

// ItemSummary is one sku total inside a report message.
type ItemSummary struct {
	SKU string      `json:"sku"`
	Qty json.Number `json:"qty"`
}

// ReportGeneratedMessage is the payload published on the report topic.
// Amounts travel as JSON numbers with the exact decimal digits.
type ReportGeneratedMessage struct {
	TotalSales   json.Number   `json:"totalSales"`
	ItemsSummary []ItemSummary `json:"itemsSummary"`
	WindowStart  time.Time     `json:"windowStart"`
	WindowEnd    time.Time     `json:"windowEnd"`
	GeneratedAt  time.Time     `json:"generatedAt"`
}

// NewReportGeneratedMessage builds the wire form of a report
func NewReportGeneratedMessage(report core.Report) *ReportGeneratedMessage {
	items := make([]ItemSummary, len(report.Summary.ItemsSummary))
	for i, item := range report.Summary.ItemsSummary {
		items[i] = ItemSummary{SKU: item.SKU, Qty: json.Number(item.Qty.String())}
	}
	return &ReportGeneratedMessage{
		TotalSales:   json.Number(report.Summary.TotalSales.String()),
		ItemsSummary: items,
		WindowStart:  report.Window.Start,
		WindowEnd:    report.Window.End,
		GeneratedAt:  report.GeneratedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportGeneratedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportGeneratedMessageFromJSON decodes a message from JSON bytes
func ReportGeneratedMessageFromJSON(data []byte) (*ReportGeneratedMessage, error) {
	var msg ReportGeneratedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Report converts the message back into the domain value.
func (m *ReportGeneratedMessage) Report() (core.Report, error) {
	total, err := decimal.NewFromString(m.TotalSales.String())
	if err != nil {
		return core.Report{}, fmt.Errorf("parse totalSales: %w", err)
	}
	items := make([]core.SKUQuantity, len(m.ItemsSummary))
	for i, item := range m.ItemsSummary {
		qty, err := decimal.NewFromString(item.Qty.String())
		if err != nil {
			return core.Report{}, fmt.Errorf("parse qty for %s: %w", item.SKU, err)
		}
		items[i] = core.SKUQuantity{SKU: item.SKU, Qty: qty}
	}
	return core.Report{
		Summary:     core.ReportSummary{TotalSales: total, ItemsSummary: items},
		Window:      core.Window{Start: m.WindowStart, End: m.WindowEnd},
		GeneratedAt: m.GeneratedAt,
	}, nil
}
