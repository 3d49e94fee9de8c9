package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	core "stockflow/internal/core/numerator"
)

type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*int64)) = r.val
	return nil
}

// fakeQuerier emulates sys_sequences: "+ $2" adds, anything else sets.
type fakeQuerier struct {
	mu    sync.Mutex
	seqs  map[string]int64
	calls int
	err   error
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{seqs: make(map[string]int64)}
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.calls++
	if q.err != nil {
		return fakeRow{err: q.err}
	}

	key := args[0].(string)
	v := args[1].(int64)
	if strings.Contains(sql, "current_val + $2") {
		q.seqs[key] += v
	} else {
		q.seqs[key] = v
	}
	return fakeRow{val: q.seqs[key]}
}

var period = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_Strict(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()

	for _, want := range []string{"PT-2026-00001", "PT-2026-00002"} {
		got, err := svc.GetNextNumber(ctx, core.DefaultConfig("PT"), nil, period)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, 2, q.calls)
	assert.Equal(t, int64(2), q.seqs["PT_2026"])
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()
	opts := &core.Options{Strategy: core.StrategyCached, RangeSize: 10}

	got, err := svc.GetNextNumber(ctx, core.DefaultConfig("SO"), opts, period)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00001", got)
	assert.Equal(t, int64(10), q.seqs["SO_2026"])

	for i := 0; i < 9; i++ {
		_, err := svc.GetNextNumber(ctx, core.DefaultConfig("SO"), opts, period)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, q.calls, "range served from memory")

	got, err = svc.GetNextNumber(ctx, core.DefaultConfig("SO"), opts, period)
	require.NoError(t, err)
	assert.Equal(t, "SO-2026-00011", got)
	assert.Equal(t, 2, q.calls)
	assert.Equal(t, int64(20), q.seqs["SO_2026"])
}

func TestSetNextNumber_DropsCachedRange(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()
	opts := &core.Options{Strategy: core.StrategyCached, RangeSize: 10}

	_, err := svc.GetNextNumber(ctx, core.DefaultConfig("PO"), opts, period)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(ctx, core.DefaultConfig("PO"), period, 100))

	got, err := svc.GetNextNumber(ctx, core.DefaultConfig("PO"), opts, period)
	require.NoError(t, err)
	assert.Equal(t, "PO-2026-00101", got)
}

func TestGetNextNumber_Errors(t *testing.T) {
	q := newFakeQuerier()
	svc := New(q)
	ctx := context.Background()

	_, err := svc.GetNextNumber(ctx, core.Config{}, nil, period)
	assert.Error(t, err)

	q.err = errors.New("connection reset")
	_, err = svc.GetNextNumber(ctx, core.DefaultConfig("PT"), nil, period)
	assert.ErrorIs(t, err, q.err)
}
