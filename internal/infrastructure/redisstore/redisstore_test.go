package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockflow/internal/core/apperror"
	"stockflow/internal/core/id"
	"stockflow/internal/domain/notify"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestLocker_ExclusiveUntilReleased(t *testing.T) {
	client, _ := newClient(t)
	locker := NewLocker(client, LockerConfig{
		Prefix:  "test:",
		TTL:     time.Minute,
		Wait:    100 * time.Millisecond,
		Backoff: 10 * time.Millisecond,
	})
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "ticket:1")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "ticket:1")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeLocked))

	other, err := locker.Lock(ctx, "ticket:2")
	require.NoError(t, err)
	other()

	unlock()

	again, err := locker.Lock(ctx, "ticket:1")
	require.NoError(t, err)
	again()
}

func TestLocker_ExpiredLockCanBeTaken(t *testing.T) {
	client, mr := newClient(t)
	locker := NewLocker(client, LockerConfig{TTL: time.Second, Wait: 50 * time.Millisecond})
	ctx := context.Background()

	_, err := locker.Lock(ctx, "ticket:1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(ctx, "ticket:1")
	require.NoError(t, err)
	unlock()
}

func TestLocker_CancelledContext(t *testing.T) {
	client, _ := newClient(t)
	locker := NewLocker(client, LockerConfig{Wait: time.Second, Backoff: 10 * time.Millisecond})

	unlock, err := locker.Lock(context.Background(), "ticket:1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.Lock(ctx, "ticket:1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPubSubSink_Publishes(t *testing.T) {
	client, _ := newClient(t)
	sink := NewPubSubSink(client, "")
	ctx := context.Background()

	sub := client.Subscribe(ctx, sink.Channel(notify.SubjectTicket))
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	change := notify.StatusChange{
		Subject:   notify.SubjectTicket,
		Domain:    "sale",
		SubjectID: id.New(),
		OldStatus: "NEW",
		NewStatus: "SHIPPING",
		ActorID:   "u1",
	}
	require.NoError(t, sink.Send(ctx, change))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "stockflow:status:ticket", msg.Channel)

	var got notify.StatusChange
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, change.SubjectID, got.SubjectID)
	assert.Equal(t, "SHIPPING", got.NewStatus)
}

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	client, _ := newClient(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	replay, err := store.Acquire(ctx, "k1", "hash-a")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = store.Acquire(ctx, "k1", "hash-a")
	assert.True(t, apperror.Is(err, apperror.CodeLocked), "in-flight key must be reported as locked")

	_, err = store.Acquire(ctx, "k1", "hash-b")
	assert.True(t, apperror.Is(err, apperror.CodeValidation), "different request must not reuse the key")

	require.NoError(t, store.Complete(ctx, "k1", "hash-a", Replay{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
	}))

	replay, err = store.Acquire(ctx, "k1", "hash-a")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.JSONEq(t, `{"ok":true}`, string(replay.Body))
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, _ := newClient(t)
	store := NewIdempotencyStore(client, time.Hour)
	ctx := context.Background()

	_, err := store.Acquire(ctx, "k1", "hash-a")
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, "k1"))

	replay, err := store.Acquire(ctx, "k1", "hash-a")
	require.NoError(t, err)
	assert.Nil(t, replay)
}
