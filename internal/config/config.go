// Package config loads runtime configuration from STOCKFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Prefix of every environment variable, e.g. STOCKFLOW_HTTP_ADDR.
const Prefix = "STOCKFLOW"

// Storage drivers.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds runtime configuration.
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	Log      LogConfig      `envconfig:"LOG"`
	HTTP     HTTPConfig     `envconfig:"HTTP"`
	Storage  StorageConfig  `envconfig:"STORAGE"`
	Database DatabaseConfig `envconfig:"DB"`
	Redis    RedisConfig    `envconfig:"REDIS"`
	Auth     AuthConfig     `envconfig:"AUTH"`
	Ledger   LedgerConfig   `envconfig:"LEDGER"`
	Notify   NotifyConfig   `envconfig:"NOTIFY"`
	Worker   WorkerConfig   `envconfig:"WORKER"`
}

type LogConfig struct {
	Level       string `envconfig:"LEVEL" default:"info"`
	Development bool   `envconfig:"DEVELOPMENT" default:"false"`
}

type HTTPConfig struct {
	Addr            string        `envconfig:"ADDR" default:":8080"`
	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"20s"`
	IdempotencyTTL  time.Duration `envconfig:"IDEMPOTENCY_TTL" default:"24h"`
}

type StorageConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `envconfig:"DRIVER" default:"memory"`
}

type DatabaseConfig struct {
	DSN          string `envconfig:"DSN"`
	MaxConns     int32  `envconfig:"MAX_CONNS" default:"20"`
	MinConns     int32  `envconfig:"MIN_CONNS" default:"2"`
	AutoMigrate  bool   `envconfig:"AUTO_MIGRATE" default:"true"`
	NoteCompress int    `envconfig:"NOTE_COMPRESS_BYTES" default:"4096"`
}

// RedisConfig enables the distributed locker, pub/sub sink and idempotency
// store when Addr is set.
type RedisConfig struct {
	Addr     string        `envconfig:"ADDR"`
	Password string        `envconfig:"PASSWORD"`
	DB       int           `envconfig:"DB" default:"0"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"30s"`
	LockWait time.Duration `envconfig:"LOCK_WAIT" default:"5s"`
}

type AuthConfig struct {
	JWTSecret string `envconfig:"JWT_SECRET"`
	Issuer    string `envconfig:"ISSUER" default:"stockflow"`
	// Disabled skips token checks; the actor then comes from X-Actor-ID.
	Disabled bool `envconfig:"DISABLED" default:"false"`
}

type LedgerConfig struct {
	PlaceholderMaxLevel string `envconfig:"PLACEHOLDER_MAX_LEVEL" default:"1000000"`
	BulkConcurrency     int    `envconfig:"BULK_CONCURRENCY" default:"8"`
}

type NotifyConfig struct {
	// Filter is a CEL expression; empty dispatches every change.
	Filter string `envconfig:"FILTER"`
	Outbox bool   `envconfig:"OUTBOX" default:"false"`
}

type WorkerConfig struct {
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL" default:"500ms"`
	BatchSize       int           `envconfig:"BATCH_SIZE" default:"100"`
	MaxRetries      int           `envconfig:"MAX_RETRIES" default:"5"`
	OutboxRetention time.Duration `envconfig:"OUTBOX_RETENTION" default:"168h"`
}

// Load reads and validates the configuration.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.DSN == "" {
			return errors.New("STOCKFLOW_DB_DSN is required for the postgres storage driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if !c.Auth.Disabled && c.Auth.JWTSecret == "" {
		return errors.New("STOCKFLOW_AUTH_JWT_SECRET is required unless auth is disabled")
	}
	if c.IsProduction() && c.Auth.Disabled {
		return errors.New("auth cannot be disabled in production")
	}
	if c.Notify.Outbox && c.Storage.Driver != StoragePostgres {
		return errors.New("the notification outbox requires the postgres storage driver")
	}
	if _, err := c.Ledger.MaxLevel(); err != nil {
		return err
	}
	if c.Ledger.BulkConcurrency < 1 {
		return errors.New("STOCKFLOW_LEDGER_BULK_CONCURRENCY must be at least 1")
	}
	return nil
}

// MaxLevel parses PlaceholderMaxLevel. Zero means unbounded.
func (l LedgerConfig) MaxLevel() (decimal.Decimal, error) {
	v, err := decimal.NewFromString(l.PlaceholderMaxLevel)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid STOCKFLOW_LEDGER_PLACEHOLDER_MAX_LEVEL: %w", err)
	}
	if v.IsNegative() {
		return decimal.Zero, errors.New("STOCKFLOW_LEDGER_PLACEHOLDER_MAX_LEVEL cannot be negative")
	}
	return v, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}
