package main

import (
	"context"
	"errors"
	"os"
	"time"

	"invoicing/internal/amqp"
	"invoicing/internal/cli"
	"invoicing/internal/log"
)

// report-tail consumes report.generated messages and logs each summary.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentConsumer)

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	client := cli.InitAMQP(logger, cfg)
	defer client.Close()

	logger.Info("Tailing sales reports", "queue", cfg.AMQPQueue, log.FieldTopic, cfg.ReportTopic)

	err := client.ConsumeReports(ctx, func(ctx context.Context, msg *amqp.ReportGeneratedMessage) error {
		report, err := msg.Report()
		if err != nil {
			// Redelivery cannot fix a bad number, so the message is dropped.
			logger.ErrorContext(ctx, "Discarding unreadable sales report", log.FieldError, err)
			return nil
		}

		fields := log.NewFields().WithWindow(report.Window.Start, report.Window.End)
		fields[log.FieldTotalSales] = report.Summary.TotalSales.StringFixed(2)
		fields[log.FieldSKUCount] = len(report.Summary.ItemsSummary)
		fields["generated_at"] = report.GeneratedAt.Format(time.RFC3339)
		logger.InfoContext(ctx, "Sales report received", fields.ToSlice()...)

		for _, item := range report.Summary.ItemsSummary {
			logger.DebugContext(ctx, "Report line", "sku", item.SKU, "qty", item.Qty.String())
		}
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Report consumer stopped", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("report-tail stopped")
}
