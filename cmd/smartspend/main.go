package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"smartspend/internal/backend"
	"smartspend/internal/cache"
	"smartspend/internal/cli"
	"smartspend/internal/format"
	apphttp "smartspend/internal/http"
	"smartspend/internal/identity"
	"smartspend/internal/log"
	"smartspend/internal/store"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(nil)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	var verifier *identity.Verifier
	if cfg.UsesJWT() {
		if verifier, err = identity.NewVerifier(cfg.JWTSecret); err != nil {
			logger.Error("Failed to initialize token verifier", log.FieldError, err)
			os.Exit(1)
		}
	}

	registry := store.NewRegistry(store.Options{
		Backend:      result.Backend,
		Notifier:     result.Notifier,
		Logger:       logger,
		SeedDefaults: cfg.SeedDefaultCategories,
	}, cfg.StoreCacheSize, cfg.StoreCacheTTL)

	caches := cache.NewManager(logger)
	caches.Register(registry.Cache())
	caches.StartCleanup(cacheCleanupInterval)

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Registry:           registry,
		Verifier:           verifier,
		OwnerID:            cfg.OwnerID,
		Currency:           format.NewCurrency(cfg.Currency, cfg.CurrencyDecimals),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		caches.Stop()
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting smartspend server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth", authMode(cfg.UsesJWT()),
		"events", result.Publisher != nil,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func authMode(jwt bool) string {
	if jwt {
		return "jwt"
	}
	return "single-owner"
}
