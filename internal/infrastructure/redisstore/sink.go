package redisstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"stockflow/internal/domain/notify"
)

// DefaultChannelPrefix prefixes the pub/sub channels of PubSubSink.
const DefaultChannelPrefix = "stockflow:status:"

// PubSubSink publishes status changes as JSON on one channel per subject
// kind, e.g. "stockflow:status:ticket_detail".
type PubSubSink struct {
	client redis.UniversalClient
	prefix string
}

var _ notify.Sink = (*PubSubSink)(nil)

// NewPubSubSink creates a sink. An empty prefix selects DefaultChannelPrefix.
func NewPubSubSink(client redis.UniversalClient, prefix string) *PubSubSink {
	if prefix == "" {
		prefix = DefaultChannelPrefix
	}
	return &PubSubSink{client: client, prefix: prefix}
}

// Name implements notify.Sink.
func (s *PubSubSink) Name() string { return "redis" }

// Channel returns the channel changes of kind are published on.
func (s *PubSubSink) Channel(kind notify.SubjectKind) string {
	return s.prefix + string(kind)
}

// Send implements notify.Sink.
func (s *PubSubSink) Send(ctx context.Context, change notify.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}
	if err := s.client.Publish(ctx, s.Channel(change.Subject), payload).Err(); err != nil {
		return fmt.Errorf("publish status change: %w", err)
	}
	return nil
}
