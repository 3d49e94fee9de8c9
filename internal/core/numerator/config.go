// Package numerator defines human-readable ticket numbering.
package numerator

import (
	"fmt"
	"time"
)

// Strategy selects how numbers are reserved.
type Strategy int

const (
	// StrategyStrict reserves every number with its own UPSERT. No gaps.
	StrategyStrict Strategy = iota

	// StrategyCached reserves ranges and hands them out from memory.
	// A restart loses the rest of the range.
	StrategyCached
)

// Options tune a single GetNextNumber call.
type Options struct {
	Strategy Strategy
	// RangeSize is the size of a cached range. Default is 50.
	RangeSize int64
}

// DefaultOptions returns the strict strategy.
func DefaultOptions() *Options {
	return &Options{Strategy: StrategyStrict}
}

// ResetPeriod controls when a sequence starts again from 1.
type ResetPeriod string

const (
	ResetYearly  ResetPeriod = "year"
	ResetMonthly ResetPeriod = "month"
	ResetNever   ResetPeriod = "never"
)

// Config describes one numbering sequence.
type Config struct {
	Prefix      string
	IncludeYear bool
	// PadWidth is the minimum width of the counter. Default is 5.
	PadWidth    int
	ResetPeriod ResetPeriod
}

// DefaultConfig returns a yearly sequence formatted as PREFIX-YYYY-NNNNN.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
		ResetPeriod: ResetYearly,
	}
}

// Key names the sequence that serves period.
func (c Config) Key(period time.Time) string {
	switch c.ResetPeriod {
	case ResetMonthly:
		return c.Prefix + "_" + period.Format("2006_01")
	case ResetNever:
		return c.Prefix
	default:
		return c.Prefix + "_" + period.Format("2006")
	}
}

// Format renders the n-th number of the sequence.
func (c Config) Format(period time.Time, n int64) string {
	width := c.PadWidth
	if width <= 0 {
		width = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%s-%0*d", c.Prefix, period.Format("2006"), width, n)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, width, n)
}
