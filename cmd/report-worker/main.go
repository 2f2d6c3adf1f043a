package main

import (
	"context"
	"os"
	"time"

	"invoicing/internal/cli"
	"invoicing/internal/log"
	"invoicing/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentScheduler)

	logger.Info("Starting report-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend == "memory" {
		logger.Warn("report-worker uses a private memory store; reports will always be empty",
			"backend", cfg.DataBackend)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backend := cli.InitBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Cleanup(); err != nil {
			logger.Error("Failed to close invoice store", log.FieldError, err)
		}
	}()

	client := cli.InitAMQP(logger, cfg)
	defer client.Close()

	scheduler := services.NewReportScheduler(backend.Store, client, nil, logger, cli.SchedulerConfig(cfg))
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start report scheduler", log.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down report-worker...")
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Report cycle still in flight at shutdown", log.FieldError, err)
		return
	}
	logger.Info("report-worker shutdown complete")
}
