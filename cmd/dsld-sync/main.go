package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/JonMunkholm/dsld-sync/internal/config"
	"github.com/JonMunkholm/dsld-sync/internal/core"
	"github.com/JonMunkholm/dsld-sync/internal/fetch"
	"github.com/JonMunkholm/dsld-sync/internal/logging"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger := logging.ForRun(uuid.NewString())
	logger.Info("configuration loaded",
		"table", cfg.Sync.Table,
		"batch_size", cfg.Sync.BatchSize,
		"batch_delay", cfg.Sync.BatchDelay,
		"target_marker", cfg.Source.TargetMarker,
	)

	ctx := context.Background()

	// Connect to database before any network activity against the source
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Database.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(connectCtx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	fetcher := fetch.NewClient(cfg.Source.TargetMarker, cfg.Source.HTTPTimeout)
	writer := core.NewWriter(pool, cfg.Sync.Table, cfg.Sync.BatchSize, cfg.Sync.BatchDelay, logger)
	pipeline := core.NewPipeline(fetcher, writer, cfg.Source.DownloadURL, logger)

	if err := pipeline.Run(ctx); err != nil {
		logger.Error("sync run failed", "error", err)
		os.Exit(1)
	}
}
