// Package config provides centralized configuration management for the sync job.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Source   SourceConfig
	Database DatabaseConfig
	Sync     SyncConfig
	Logging  LoggingConfig
}

// SourceConfig holds settings for the upstream DSLD archive.
type SourceConfig struct {
	// DownloadURL is the location of the zipped CSV database export
	// published by the NIH Office of Dietary Supplements.
	DownloadURL string `env:"DSLD_DOWNLOAD_URL" default:"https://api.ods.od.nih.gov/dsld/s3/data/DSLD-full-database-CSV.zip"`

	// TargetMarker selects archive members whose name contains this substring (default: ProductOverview)
	TargetMarker string `env:"DSLD_TARGET_MARKER" default:"ProductOverview"`

	// HTTPTimeout bounds the whole download, headers through body (default: 5m)
	HTTPTimeout time.Duration `env:"DSLD_HTTP_TIMEOUT" default:"5m"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and SUPABASE_DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"SUPABASE_DB_URL" required:"true"`

	// ConnectTimeout is the maximum time to establish the connection (default: 15s)
	ConnectTimeout time.Duration `env:"DB_CONNECT_TIMEOUT" default:"15s"`
}

// SyncConfig holds settings for the batched upsert into the destination table.
type SyncConfig struct {
	// Table is the destination table name (default: dsld_supplements)
	Table string `env:"SYNC_TABLE" default:"dsld_supplements"`

	// BatchSize is the number of rows sent per upsert batch (default: 500)
	BatchSize int `env:"SYNC_BATCH_SIZE" default:"500"`

	// BatchDelay is the pause between consecutive batches (default: 1s)
	BatchDelay time.Duration `env:"SYNC_BATCH_DELAY" default:"1s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
