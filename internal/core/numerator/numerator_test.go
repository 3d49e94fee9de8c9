package numerator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_FormatAndKey(t *testing.T) {
	period := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	cfg := DefaultConfig("PT")
	assert.Equal(t, "PT-2026-00007", cfg.Format(period, 7))
	assert.Equal(t, "PT_2026", cfg.Key(period))

	cfg.IncludeYear = false
	cfg.PadWidth = 3
	assert.Equal(t, "PT-042", cfg.Format(period, 42))

	cfg.ResetPeriod = ResetMonthly
	assert.Equal(t, "PT_2026_03", cfg.Key(period))
	cfg.ResetPeriod = ResetNever
	assert.Equal(t, "PT", cfg.Key(period))
}

func TestMemoryGenerator(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGenerator()
	now := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)

	first, err := g.GetNextNumber(ctx, DefaultConfig("SO"), nil, now)
	require.NoError(t, err)
	second, err := g.GetNextNumber(ctx, DefaultConfig("SO"), nil, now)
	require.NoError(t, err)
	other, err := g.GetNextNumber(ctx, DefaultConfig("PO"), nil, now)
	require.NoError(t, err)

	assert.Equal(t, "SO-2026-00001", first)
	assert.Equal(t, "SO-2026-00002", second)
	assert.Equal(t, "PO-2026-00001", other)

	nextYear, err := g.GetNextNumber(ctx, DefaultConfig("SO"), nil, now.AddDate(1, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, "SO-2027-00001", nextYear)

	require.NoError(t, g.SetNextNumber(ctx, DefaultConfig("SO"), now, 99))
	n, err := g.GetNextNumber(ctx, DefaultConfig("SO"), nil, now)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00100", n)

	_, err = g.GetNextNumber(ctx, Config{}, nil, now)
	assert.Error(t, err)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(12), ParseNumber("PT-2026-00012"))
	assert.Equal(t, int64(5), ParseNumber("PT-005"))
	assert.Equal(t, int64(-1), ParseNumber("PT"))
	assert.Equal(t, int64(-1), ParseNumber("PT-"))
	assert.Equal(t, int64(-1), ParseNumber("PT-x1"))
}
