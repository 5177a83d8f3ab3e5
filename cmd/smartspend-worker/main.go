package main

import (
	"context"
	"errors"
	"os"
	"time"

	"smartspend/internal/amqp"
	"smartspend/internal/cli"
	"smartspend/internal/config"
	"smartspend/internal/log"
	"smartspend/internal/sheets"
	gsheet "smartspend/internal/sheets/google"
	mem "smartspend/internal/sheets/memory"
	"smartspend/internal/storage"
	"smartspend/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	logger.Info("Starting smartspend-worker")

	// The worker reads the same SQLite database the API server writes.
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, logger)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}

	var mirror sheets.Mirror
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		mirror = mem.New()
		logger.Warn("No GOOGLE_SPREADSHEET_ID provided, mirroring in memory only")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	syncWorker := worker.NewSyncWorker(repo, mirror, logger)
	syncWorker.Track(cfg.OwnerID)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(context.Context) {
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", log.FieldError, err)
		}
		if err := repo.Close(); err != nil {
			logger.Error("SQLite close error", log.FieldError, err)
		}
	})

	// Catch up with anything written while the worker was down.
	if err := syncWorker.SyncAll(ctx); err != nil {
		logger.Error("Startup sync failed", log.FieldError, err)
	}

	go func() {
		if err := amqpClient.ConsumeChanges(ctx, syncWorker.HandleChange); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
	}()

	go func() {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := syncWorker.SyncAll(ctx); err != nil {
					logger.Error("Periodic sync failed", log.FieldError, err)
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
