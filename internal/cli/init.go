// Package cli provides common CLI initialization utilities shared by
// cmd/tracker and cmd/recurring-worker.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tracker/internal/amqp"
	"tracker/internal/backend"
	"tracker/internal/cache"
	"tracker/internal/config"
	"tracker/internal/core"
	applog "tracker/internal/log"
	"tracker/internal/ports"
	"tracker/internal/services"
)

// SetupLogger initializes structured logging at the given level and sets it
// as the default logger. An unknown level falls back to info.
func SetupLogger(level, component string) *applog.Logger {
	cfg := applog.DefaultConfig()
	cfg.Component = component
	if lvl, err := applog.ParseLevel(level); err == nil {
		cfg.Level = lvl
	}
	logger := applog.New(cfg)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured store or exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", backendCfg.Type)
		os.Exit(1)
	}
	return result
}

// InitAMQP connects the event publisher. It returns nil when AMQP is
// disabled or unreachable; events are then only logged.
func InitAMQP(ctx context.Context, logger *applog.Logger, cfg *config.Config) *amqp.Client {
	if cfg.AMQPURL == "" {
		logger.Info("AMQP disabled - ledger events will not be published")
		return nil
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	return client
}

// Publisher converts a possibly nil client to an EventPublisher without
// producing a non-nil interface around a nil pointer.
func Publisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// NewLedgerService wires the ledger service with its caches.
func NewLedgerService(cfg *config.Config, store ports.LedgerStore, processor *services.RecurringProcessor, publisher services.EventPublisher) *services.LedgerService {
	return services.NewLedgerService(
		store,
		processor,
		publisher,
		cache.NewLRUCache[services.Dashboard](cfg.CacheSize, cfg.CacheTTL),
		cache.NewLRUCache[core.Tier](cfg.CacheSize, 0),
	)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()

		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup is done.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

