package numerator

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Generator hands out sequential numbers.
type Generator interface {
	// GetNextNumber returns the next number of cfg's sequence for period.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves the sequence so the next number is value+1.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}

// MemoryGenerator keeps sequences in process memory.
// Used by the memory storage driver and in tests.
type MemoryGenerator struct {
	mu   sync.Mutex
	seqs map[string]int64
}

var _ Generator = (*MemoryGenerator)(nil)

// NewMemoryGenerator creates an empty in-memory generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{seqs: make(map[string]int64)}
}

// GetNextNumber implements Generator. Options are ignored.
func (g *MemoryGenerator) GetNextNumber(_ context.Context, cfg Config, _ *Options, period time.Time) (string, error) {
	if cfg.Prefix == "" {
		return "", fmt.Errorf("numerator: empty prefix")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	key := cfg.Key(period)
	g.seqs[key]++
	return cfg.Format(period, g.seqs[key]), nil
}

// SetNextNumber implements Generator.
func (g *MemoryGenerator) SetNextNumber(_ context.Context, cfg Config, period time.Time, value int64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seqs[cfg.Key(period)] = value
	return nil
}

// ParseNumber extracts the counter from a formatted number.
// Returns -1 if formatted does not end in a counter.
func ParseNumber(formatted string) int64 {
	i := strings.LastIndexByte(formatted, '-')
	if i < 0 || i == len(formatted)-1 {
		return -1
	}
	n, err := strconv.ParseInt(formatted[i+1:], 10, 64)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
