package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"stockflow/internal/core/apperror"
	"stockflow/internal/domain/workflow"
	"stockflow/pkg/logger"
)

// LockerConfig tunes Locker.
type LockerConfig struct {
	// Prefix is prepended to every lock key.
	Prefix string
	// TTL bounds how long a crashed holder keeps the lock.
	TTL time.Duration
	// Wait is how long Lock retries before giving up with RESOURCE_LOCKED.
	Wait time.Duration
	// Backoff is the pause between attempts.
	Backoff time.Duration
}

// DefaultLockerConfig returns the defaults used by cmd/server.
func DefaultLockerConfig() LockerConfig {
	return LockerConfig{
		Prefix:  "stockflow:lock:",
		TTL:     30 * time.Second,
		Wait:    5 * time.Second,
		Backoff: 25 * time.Millisecond,
	}
}

// Locker is a workflow.Locker shared by every API instance.
type Locker struct {
	client *redislock.Client
	cfg    LockerConfig
}

var _ workflow.Locker = (*Locker)(nil)

// NewLocker creates a distributed locker over rdb.
func NewLocker(rdb redis.UniversalClient, cfg LockerConfig) *Locker {
	def := DefaultLockerConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	return &Locker{client: redislock.New(rdb), cfg: cfg}
}

// Lock implements workflow.Locker.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	full := l.cfg.Prefix + key

	obtainCtx := ctx
	if l.cfg.Wait > 0 {
		var cancel context.CancelFunc
		obtainCtx, cancel = context.WithTimeout(ctx, l.cfg.Wait)
		defer cancel()
	}

	lock, err := l.client.Obtain(obtainCtx, full, l.cfg.TTL, &redislock.Options{
		RetryStrategy: redislock.LinearBackoff(l.cfg.Backoff),
	})
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, redislock.ErrNotObtained), errors.Is(err, context.DeadlineExceeded):
		return nil, apperror.NewLocked(key)
	default:
		return nil, fmt.Errorf("obtain lock %s: %w", key, err)
	}

	return func() {
		// The caller's ctx may already be cancelled; the lock must still go.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release lock failed", "key", key, "error", err)
		}
	}, nil
}
