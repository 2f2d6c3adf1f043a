// Package cli provides common CLI initialization utilities shared by
// cmd/invoice-api, cmd/report-worker and cmd/report-tail.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"invoicing/internal/amqp"
	"invoicing/internal/backend"
	"invoicing/internal/config"
	"invoicing/internal/log"
	"invoicing/internal/services"
)

// SetupLogger builds the process logger from LOG_LEVEL and makes it the
// slog default, so packages logging through slog share the handler.
func SetupLogger(component string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(os.Getenv("LOG_LEVEL"))
	cfg.Component = component

	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the invoice store selected by DATA_BACKEND.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *log.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize invoice store", log.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	return result
}

// InitAMQP connects to the broker and declares the report exchange and queue.
// Exits the process on failure.
func InitAMQP(logger *log.Logger, cfg *config.Config) *amqp.Client {
	if err := cfg.ValidateBroker(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, cfg.ReportTopic,
		amqp.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err,
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}
	logger.Info("AMQP client initialized",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue,
		log.FieldTopic, cfg.ReportTopic)
	return client
}

// SchedulerConfig maps the REPORT_* settings onto the scheduler.
func SchedulerConfig(cfg *config.Config) services.SchedulerConfig {
	return services.SchedulerConfig{
		Interval:       cfg.ReportInterval,
		Anchor:         cfg.Anchor(),
		Location:       cfg.Location(),
		Topic:          cfg.ReportTopic,
		PublishTimeout: cfg.ReportPublishTimeout,
		RunOnStart:     cfg.ReportRunOnStart,
	}
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
