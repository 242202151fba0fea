package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"cashback/internal/cli"
	apphttp "cashback/internal/http"
	"cashback/internal/log"
	"cashback/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	result := cli.OpenBackend(context.Background(), logger, cfg)

	opts := []services.Option{services.WithLogger(logger)}
	if result.Notifier != nil {
		opts = append(opts, services.WithNotifier(result.Notifier))
	}
	svc := services.NewCashbackService(result.Store, opts...)

	cacheManager := cli.StartCacheCleanup(result.Caches, cfg.SheetsCacheCleanupInterval)

	srv := apphttp.NewServer(":"+cfg.Port, svc, logger, apphttp.Options{WritesPerMinute: cfg.WritesPerMinute})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 20 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if err := result.Close(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting cashback server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp_enabled", result.Notifier != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
