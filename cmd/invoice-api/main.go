package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicing/internal/cache"
	"invoicing/internal/cli"
	"invoicing/internal/core"
	apphttp "invoicing/internal/http"
	"invoicing/internal/log"
	"invoicing/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	if err := run(logger); err != nil {
		logger.Error("invoice-api exited with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("invoice-api stopped gracefully")
}

func run(logger *log.Logger) error {
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Failed to close invoice store", log.FieldError, err)
		}
	}()

	invoiceCache := cache.NewLRUCache[core.Invoice](cfg.InvoiceCacheSize, cfg.InvoiceCacheTTL)
	janitor := cache.NewJanitor(logger)
	if cfg.InvoiceCacheTTL > 0 {
		janitor.Register(invoiceCache)
		janitor.Start(ctx, cfg.InvoiceCacheTTL)
		defer janitor.Stop()
	}

	invoices := services.NewInvoiceService(backend.Store, invoiceCache, logger)
	srv := apphttp.NewServer(":"+cfg.Port, invoices, apphttp.Options{
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting invoice API",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"reports_enabled", cfg.ReportEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		logger.Info("Shutting down HTTP server", log.FieldOperation, log.OpShutdown)
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.ReportEnabled {
		client := cli.InitAMQP(logger, cfg)
		defer client.Close()

		scheduler := services.NewReportScheduler(backend.Store, client, nil, logger, cli.SchedulerConfig(cfg))
		g.Go(func() error {
			if err := scheduler.Start(gctx); err != nil {
				return err
			}
			<-gctx.Done()
			stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stopCancel()
			return scheduler.Stop(stopCtx)
		})
	} else {
		logger.Info("Report scheduler disabled", "env", "REPORT_ENABLED")
	}

	return g.Wait()
}
