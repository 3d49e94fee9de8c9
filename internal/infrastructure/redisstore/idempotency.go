package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/core/apperror"
)

type idempotencyStatus string

const (
	idempotencyPending idempotencyStatus = "pending"
	idempotencyDone    idempotencyStatus = "done"
)

// IdempotencyRecord is the stored state of one idempotency key.
type IdempotencyRecord struct {
	Status      idempotencyStatus `json:"status"`
	Fingerprint string            `json:"fingerprint"`
	StatusCode  int               `json:"statusCode,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
	Body        []byte            `json:"body,omitempty"`
}

// Replay is a cached response returned for a repeated request.
type Replay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// IdempotencyStore remembers responses of mutating requests by key so a
// retried stock movement is applied once.
type IdempotencyStore struct {
	client     redis.UniversalClient
	prefix     string
	ttl        time.Duration
	pendingTTL time.Duration
}

// NewIdempotencyStore creates a store keeping completed responses for ttl.
func NewIdempotencyStore(client redis.UniversalClient, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyStore{
		client:     client,
		prefix:     "stockflow:idem:",
		ttl:        ttl,
		pendingTTL: time.Minute,
	}
}

// Acquire claims key for a request identified by fingerprint.
// It returns (nil, nil) when the caller should process the request, a Replay
// when the request already completed, and an AppError when the key is in use
// by a different request or still being processed.
func (s *IdempotencyStore) Acquire(ctx context.Context, key, fingerprint string) (*Replay, error) {
	pending, err := json.Marshal(IdempotencyRecord{Status: idempotencyPending, Fingerprint: fingerprint})
	if err != nil {
		return nil, fmt.Errorf("marshal idempotency record: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.prefix+key, pending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET.
		return nil, apperror.NewLocked("idempotency key " + key)
	}
	if err != nil {
		return nil, fmt.Errorf("read idempotency key: %w", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode idempotency record: %w", err)
	}
	if rec.Fingerprint != fingerprint {
		return nil, apperror.NewValidation("Idempotency key was already used for a different request").
			WithDetail("idempotency_key", key)
	}
	if rec.Status == idempotencyPending {
		return nil, apperror.NewLocked("idempotency key " + key)
	}
	return &Replay{StatusCode: rec.StatusCode, ContentType: rec.ContentType, Body: rec.Body}, nil
}

// Complete stores the response of a processed request.
func (s *IdempotencyStore) Complete(ctx context.Context, key, fingerprint string, resp Replay) error {
	raw, err := json.Marshal(IdempotencyRecord{
		Status:      idempotencyDone,
		Fingerprint: fingerprint,
		StatusCode:  resp.StatusCode,
		ContentType: resp.ContentType,
		Body:        resp.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal idempotency record: %w", err)
	}
	if err := s.client.Set(ctx, s.prefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("complete idempotency key: %w", err)
	}
	return nil
}

// Release forgets key so the request can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}
