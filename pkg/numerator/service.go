// Package numerator reserves ticket numbers from the sys_sequences table.
// Numbers are taken outside business transactions, so a rolled back ticket
// leaves a gap instead of holding the sequence row locked.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	core "stockflow/internal/core/numerator"
)

const defaultRangeSize = 50

// Querier is the subset of pgx used by Service.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type cachedRange struct {
	current int64
	max     int64
}

// Service implements numerator.Generator over PostgreSQL.
type Service struct {
	querier Querier

	mu     sync.Mutex
	ranges map[string]*cachedRange
}

var _ core.Generator = (*Service)(nil)

// New creates a numbering service. Pass the pool, not a transaction.
func New(querier Querier) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber implements numerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg core.Config, opts *core.Options, period time.Time) (string, error) {
	if cfg.Prefix == "" {
		return "", fmt.Errorf("numerator: empty prefix")
	}
	if opts == nil {
		opts = core.DefaultOptions()
	}

	key := cfg.Key(period)
	var (
		n   int64
		err error
	)
	switch opts.Strategy {
	case core.StrategyCached:
		n, err = s.nextCached(ctx, key, opts.RangeSize)
	default:
		n, err = s.reserve(ctx, key, 1)
	}
	if err != nil {
		return "", err
	}
	return cfg.Format(period, n), nil
}

// reserve bumps the sequence by size and returns the new last value.
func (s *Service) reserve(ctx context.Context, key string, size int64) (int64, error) {
	var last int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
		RETURNING current_val
	`, key, size).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("reserve %s: %w", key, err)
	}
	return last, nil
}

func (s *Service) nextCached(ctx context.Context, key string, size int64) (int64, error) {
	if size <= 0 {
		size = defaultRangeSize
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}
	if rng.current >= rng.max {
		last, err := s.reserve(ctx, key, size)
		if err != nil {
			return 0, err
		}
		// The reserved range is (last-size, last].
		rng.current = last - size
		rng.max = last
	}
	rng.current++
	return rng.current, nil
}

// SetNextNumber implements numerator.Generator and drops any cached range.
func (s *Service) SetNextNumber(ctx context.Context, cfg core.Config, period time.Time, value int64) error {
	key := cfg.Key(period)

	var stored int64
	err := s.querier.QueryRow(ctx, `
		INSERT INTO sys_sequences (key, current_val)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET current_val = $2
		RETURNING current_val
	`, key, value).Scan(&stored)

	s.mu.Lock()
	delete(s.ranges, key)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
