// Package config defines the top-level configuration for the marketplace
// daemon and provides validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by MARKET_* environment
// variables.
type Config struct {
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Market   MarketConfig   `toml:"market"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for the archiver.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// MarketConfig holds lifecycle parameters.
type MarketConfig struct {
	// RetentionDays is how long touched store entries are kept after each
	// successful operation.
	RetentionDays int `toml:"retention_days"`

	// DevMode disables signature authorization; every claimed identity is
	// accepted. Never enable outside local development.
	DevMode bool `toml:"dev_mode"`
}

// ArchiveConfig holds archiver parameters.
type ArchiveConfig struct {
	// IntervalMinutes between archive snapshots in full mode. Zero
	// disables the periodic loop.
	IntervalMinutes int `toml:"interval_minutes"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`

	// MaxAuthSkewSeconds bounds signed-request timestamp drift.
	MaxAuthSkewSeconds int `toml:"max_auth_skew_seconds"`

	// RateLimit is requests per second per client IP; zero disables.
	RateLimit int `toml:"rate_limit"`
}

var validModes = map[string]bool{
	"serve":   true,
	"archive": true,
	"full":    true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for the selected mode and returns a
// single error aggregating every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, archive, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Postgres is required in every mode; the store is the durable footprint.
	if c.Postgres.DSN == "" && (c.Postgres.Host == "" || c.Postgres.Database == "" || c.Postgres.User == "") {
		errs = append(errs, "postgres: either dsn or host/database/user must be set")
	}

	mode := strings.ToLower(c.Mode)
	if mode == "serve" || mode == "full" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr is required for mode "+mode)
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port %d out of range", c.Server.Port))
		}
	}
	if mode == "archive" || mode == "full" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket is required for mode "+mode)
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region is required for mode "+mode)
		}
	}

	if c.Market.RetentionDays < 0 {
		errs = append(errs, "market: retention_days must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}
