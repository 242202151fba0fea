package main

import (
	"context"
	"errors"
	"os"
	"time"

	"cashback/internal/amqp"
	"cashback/internal/backend"
	"cashback/internal/cache"
	"cashback/internal/cli"
	"cashback/internal/log"
	"cashback/internal/sheets/google"
	"cashback/internal/worker"
)

// cashback-mirror copies the primary store into a Google spreadsheet. It
// reacts to table change events when AMQP is configured and resyncs every
// SYNC_INTERVAL in any case.
func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	cfg := cli.LoadAndValidateConfig(logger)
	if err := cfg.ValidateMirror(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	// The mirror only reads the primary store; it never needs the notifier.
	primaryCfg := *cfg
	primaryCfg.AMQPURL = ""
	primary := cli.OpenBackend(context.Background(), logger, &primaryCfg)

	target, err := google.New(backend.SheetsConfig(cfg))
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	cacheManager := cli.StartCacheCleanup([]cache.Cleaner{target.ServiceCache()}, cfg.SheetsCacheCleanupInterval)

	var consumer *amqp.Client
	if cfg.AMQPEnabled() {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		cacheManager.Stop()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
		if err := primary.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	mirror := worker.NewMirrorWorker(primary.Store, target)

	logger.Info("Performing startup sync", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	if err := mirror.SyncAll(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	if consumer != nil {
		go func() {
			err := consumer.ConsumeTableChanged(ctx, mirror.HandleTableChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming table change events", "queue", cfg.AMQPQueue)
	}

	logger.Info("Starting periodic sync", "interval", cfg.SyncInterval.String())
	mirror.Run(ctx, cfg.SyncInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Mirror stopped gracefully")
}
