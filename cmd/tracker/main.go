package main

import (
	"context"
	"os"
	"time"

	"tracker/internal/cli"
	apphttp "tracker/internal/http"
	applog "tracker/internal/log"
	"tracker/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info", applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentApp)

	ctx := context.Background()
	store := cli.InitBackend(ctx, logger, cfg)
	publisher := cli.Publisher(cli.InitAMQP(ctx, logger, cfg))

	processor := services.NewRecurringProcessor(store.Store, publisher)
	ledger := cli.NewLedgerService(cfg, store.Store, processor, publisher)

	srv, err := apphttp.NewServer(apphttp.ServerConfig{
		Port:        cfg.Port,
		RateLimit:   cfg.RateLimit,
		CORSOrigins: cfg.CORSOrigins,
		Location:    cfg.Location(),
	}, ledger, logger.WithComponent(applog.ComponentHTTP))
	if err != nil {
		logger.Error("Failed to build HTTP server", "error", err)
		os.Exit(1)
	}

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger service", "error", err)
		}
	})

	logger.Info("Starting tracker server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"timezone", cfg.Location().String())
	if err := srv.Start(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
