package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stockflow/internal/config"
	"stockflow/pkg/logger"
)

type fakeRelay struct {
	batches []int
	err     error
	calls   int
	purged  time.Duration
}

func (r *fakeRelay) ProcessBatch(context.Context) (int, error) {
	r.calls++
	if r.err != nil {
		return 0, r.err
	}
	if len(r.batches) == 0 {
		return 0, nil
	}
	n := r.batches[0]
	r.batches = r.batches[1:]
	return n, nil
}

func (r *fakeRelay) Purge(_ context.Context, retention time.Duration) (int64, error) {
	r.purged = retention
	return 3, nil
}

func newTestWorker(r relay) *OutboxWorker {
	return NewOutboxWorker(r, config.WorkerConfig{
		PollInterval:    time.Millisecond,
		OutboxRetention: time.Hour,
	}, logger.NewNop())
}

func TestDrainStopsOnEmptyBatch(t *testing.T) {
	r := &fakeRelay{batches: []int{100, 100, 7}}
	newTestWorker(r).drain(context.Background())

	// three non-empty batches and the empty one that ends the drain
	assert.Equal(t, 4, r.calls)
}

func TestDrainStopsOnError(t *testing.T) {
	r := &fakeRelay{err: errors.New("connection reset")}
	newTestWorker(r).drain(context.Background())

	assert.Equal(t, 1, r.calls)
}

func TestPurgeUsesRetention(t *testing.T) {
	r := &fakeRelay{}
	newTestWorker(r).purge(context.Background())

	assert.Equal(t, time.Hour, r.purged)
}

func TestRunReturnsOnCancel(t *testing.T) {
	r := &fakeRelay{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		newTestWorker(r).Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
