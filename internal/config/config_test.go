package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STOCKFLOW_AUTH_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 8, cfg.Ledger.BulkConcurrency)
	level, err := cfg.Ledger.MaxLevel()
	require.NoError(t, err)
	assert.Equal(t, "1000000", level.String())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STOCKFLOW_STORAGE_DRIVER", "postgres")
	t.Setenv("STOCKFLOW_DB_DSN", "postgres://localhost/stockflow")
	t.Setenv("STOCKFLOW_AUTH_DISABLED", "true")
	t.Setenv("STOCKFLOW_REDIS_ADDR", "127.0.0.1:6379")
	t.Setenv("STOCKFLOW_NOTIFY_FILTER", `subject == "ticket"`)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "postgres://localhost/stockflow", cfg.Database.DSN)
	assert.True(t, cfg.Auth.Disabled)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis.Addr)
	assert.Equal(t, `subject == "ticket"`, cfg.Notify.Filter)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Storage: StorageConfig{Driver: StorageMemory},
			Auth:    AuthConfig{JWTSecret: "s"},
			Ledger:  LedgerConfig{PlaceholderMaxLevel: "10", BulkConcurrency: 1},
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid", func(*Config) {}, ""},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = StoragePostgres }, "STOCKFLOW_DB_DSN"},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, "unknown storage driver"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "JWT_SECRET"},
		{"auth disabled in production", func(c *Config) { c.Env = "production"; c.Auth.Disabled = true }, "production"},
		{"outbox on memory", func(c *Config) { c.Notify.Outbox = true }, "outbox"},
		{"negative max level", func(c *Config) { c.Ledger.PlaceholderMaxLevel = "-1" }, "negative"},
		{"bad max level", func(c *Config) { c.Ledger.PlaceholderMaxLevel = "x" }, "invalid"},
		{"zero concurrency", func(c *Config) { c.Ledger.BulkConcurrency = 0 }, "BULK_CONCURRENCY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
