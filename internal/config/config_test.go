package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://market:pw@localhost:5432/market"
	cfg.S3.Bucket = "market-archive"
	cfg.S3.Region = "us-east-1"
	return cfg
}

func TestValidateAcceptsEveryMode(t *testing.T) {
	for _, mode := range []string{"serve", "archive", "full"} {
		cfg := validConfig()
		cfg.Mode = mode
		assert.NoError(t, cfg.Validate(), "mode %s", mode)
	}
}

func TestValidateRejectsUnknownMode(t *testing.T) {
	cfg := validConfig()
	cfg.Mode = "trade"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateRequiresPostgres(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres = PostgresConfig{}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")

	// Host/database/user is an acceptable alternative to a DSN.
	cfg.Postgres = PostgresConfig{Host: "localhost", Database: "market", User: "market"}
	assert.NoError(t, cfg.Validate())
}

func TestValidatePerModeRequirements(t *testing.T) {
	t.Run("serve needs redis", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "serve"
		cfg.Redis.Addr = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis")
	})

	t.Run("archive needs s3", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "archive"
		cfg.S3.Bucket = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket")
	})

	t.Run("archive tolerates missing redis", func(t *testing.T) {
		cfg := validConfig()
		cfg.Mode = "archive"
		cfg.Redis.Addr = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad port", func(t *testing.T) {
		cfg := validConfig()
		cfg.Server.Port = 70000
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "port")
	})
}

func TestValidateAggregatesErrors(t *testing.T) {
	cfg := Config{Mode: "bogus", LogLevel: "noisy"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "postgres")
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "full"
log_level = "debug"

[postgres]
dsn = "postgres://file-dsn"

[market]
retention_days = 7

[server]
port = 9090
cors_origins = ["https://market.example"]
`), 0o644))

	t.Setenv("MARKET_POSTGRES_DSN", "postgres://env-dsn")
	t.Setenv("MARKET_SERVER_RATE_LIMIT", "50")
	t.Setenv("MARKET_DEV_MODE", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env beats file beats default.
	assert.Equal(t, "postgres://env-dsn", cfg.Postgres.DSN)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.RateLimit)
	assert.True(t, cfg.Market.DevMode)
	assert.Equal(t, 7, cfg.Market.RetentionDays)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, []string{"https://market.example"}, cfg.Server.CORSOrigins)

	// Untouched fields keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 60, cfg.Archive.IntervalMinutes)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.S3.AccessKey = "AKIA123"
	cfg.S3.SecretKey = "s3-secret"
	cfg.Server.CORSOrigins = []string{"https://a"}

	red := RedactedConfig(&cfg)
	assert.Equal(t, "***", red.Postgres.DSN)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.AccessKey)
	assert.Equal(t, "***", red.S3.SecretKey)

	// Originals are untouched, and the copy owns its slices.
	assert.Equal(t, "pg-secret", cfg.Postgres.Password)
	red.Server.CORSOrigins[0] = "mutated"
	assert.Equal(t, "https://a", cfg.Server.CORSOrigins[0])
}
