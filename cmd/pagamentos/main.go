package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pagamentos/internal/backend"
	"pagamentos/internal/cache"
	"pagamentos/internal/cli"
	"pagamentos/internal/config"
	apphttp "pagamentos/internal/http"
	"pagamentos/internal/log"
	"pagamentos/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadConfig((*config.Config).Validate)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	svc := services.NewLedgerService(result.Backend, services.Options{
		QueueSize:   cfg.PersistQueueSize,
		TrendMonths: cfg.TrendMonths,
		Logger:      logger.WithComponent(log.ComponentLedger),
	})

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Config{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})

	cacheCtx, stopCaches := context.WithCancel(context.Background())
	caches := cache.NewManager(logger)
	if result.Cache != nil {
		caches.Register(result.Cache)
	}
	caches.Start(cacheCtx, time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		// Drain queued saves before the backend goes away.
		if err := svc.Close(); err != nil {
			logger.Error("Ledger service close error", log.FieldError, err)
		}
		stopCaches()
		caches.Wait()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting pagamentos server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
