package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Defaults returns the built-in configuration before the TOML file and
// environment overrides are merged on top.
func Defaults() Config {
	return Config{
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  8,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			PoolSize:   8,
			MaxRetries: 3,
		},
		Market: MarketConfig{
			RetentionDays: 30,
		},
		Archive: ArchiveConfig{
			IntervalMinutes: 60,
		},
		Server: ServerConfig{
			Port:               8080,
			MaxAuthSkewSeconds: 300,
			RateLimit:          20,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies MARKET_* environment variable overrides, and
// returns the final Config. The caller should invoke Config.Validate()
// after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known MARKET_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "MARKET_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "MARKET_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "MARKET_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "MARKET_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "MARKET_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "MARKET_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "MARKET_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "MARKET_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "MARKET_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "MARKET_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "MARKET_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "MARKET_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "MARKET_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "MARKET_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "MARKET_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "MARKET_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "MARKET_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "MARKET_S3_REGION")
	setStr(&cfg.S3.Bucket, "MARKET_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "MARKET_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "MARKET_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "MARKET_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "MARKET_S3_FORCE_PATH_STYLE")

	// ── Market ──
	setInt(&cfg.Market.RetentionDays, "MARKET_RETENTION_DAYS")
	setBool(&cfg.Market.DevMode, "MARKET_DEV_MODE")

	// ── Archive ──
	setInt(&cfg.Archive.IntervalMinutes, "MARKET_ARCHIVE_INTERVAL_MINUTES")

	// ── Server ──
	setInt(&cfg.Server.Port, "MARKET_SERVER_PORT")
	setInt(&cfg.Server.MaxAuthSkewSeconds, "MARKET_SERVER_MAX_AUTH_SKEW_SECONDS")
	setInt(&cfg.Server.RateLimit, "MARKET_SERVER_RATE_LIMIT")
	if v := os.Getenv("MARKET_SERVER_CORS_ORIGINS"); v != "" {
		parts := strings.Split(v, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	// ── Top level ──
	setStr(&cfg.Mode, "MARKET_MODE")
	setStr(&cfg.LogLevel, "MARKET_LOG_LEVEL")
}

func setStr(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, env string) {
	if v := os.Getenv(env); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
