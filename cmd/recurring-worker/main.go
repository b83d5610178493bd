package main

import (
	"context"
	"os"
	"time"

	"tracker/internal/cli"
	applog "tracker/internal/log"
	"tracker/internal/services"
	"tracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger("info", applog.ComponentWorker)
	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, applog.ComponentWorker)

	startCtx := context.Background()
	store := cli.InitBackend(startCtx, logger, cfg)
	amqpClient := cli.InitAMQP(startCtx, logger, cfg)

	processor := services.NewRecurringProcessor(store.Store, cli.Publisher(amqpClient))
	w := worker.NewRecurringWorker(store.Store, processor, cfg.Location(), cfg.WorkerConcurrency)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		w.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("Failed to close AMQP client", "error", err)
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	})

	// Catch up on anything due since the last run before waiting for the schedule.
	logger.Info("Running initial recurring pass...")
	if stats, err := w.RunOnce(ctx); err != nil {
		logger.Error("Initial recurring pass failed", "error", err)
	} else {
		logger.Info("Initial recurring pass complete", "owners", stats.Owners, "inserted", stats.Inserted)
	}

	if err := w.Start(ctx, cfg.RecurringSchedule); err != nil {
		logger.Error("Failed to start recurring worker", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Recurring-worker shutdown complete")
}
