package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"stockflow/internal/core/id"
	"stockflow/internal/domain/notify"
	"stockflow/pkg/logger"
)

const outboxTable = "sys_outbox"

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// EventStatusChanged is the event type of status-change messages.
const EventStatusChanged = "StatusChanged"

// OutboxMessage is a row of sys_outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"`
	AggregateID   id.ID        `db:"aggregate_id"`
	EventType     string       `db:"event_type"`
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

var outboxColumns = ExtractDBColumns[OutboxMessage]()

// OutboxSink is a notify.Sink that records status changes in sys_outbox.
// A relay process delivers them later, so slow or offline consumers never
// lose a change that was dispatched.
type OutboxSink struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

var _ notify.Sink = (*OutboxSink)(nil)

// NewOutboxSink creates a new outbox sink.
func NewOutboxSink(txManager *TxManager) *OutboxSink {
	return &OutboxSink{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Name implements notify.Sink.
func (s *OutboxSink) Name() string { return "outbox" }

// Send implements notify.Sink.
func (s *OutboxSink) Send(ctx context.Context, change notify.StatusChange) error {
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshal status change: %w", err)
	}

	q := s.builder.Insert(outboxTable).
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at").
		Values(id.New(), string(change.Subject), change.SubjectID, EventStatusChanged, payload, OutboxStatusPending, s.now())

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// RelayConfig tunes OutboxRelay.
type RelayConfig struct {
	BatchSize  int
	MaxRetries int
	// Backoff is multiplied by the retry count to get the next attempt time.
	Backoff time.Duration
}

// DefaultRelayConfig returns the defaults used by cmd/worker.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{BatchSize: 100, MaxRetries: 5, Backoff: time.Minute}
}

// OutboxRelay forwards pending outbox messages to a sink.
// Concurrent relays skip each other's rows.
type OutboxRelay struct {
	txManager *TxManager
	sink      notify.Sink
	cfg       RelayConfig
	builder   squirrel.StatementBuilderType
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, sink notify.Sink, cfg RelayConfig) *OutboxRelay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultRelayConfig().BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultRelayConfig().MaxRetries
	}
	return &OutboxRelay{
		txManager: txManager,
		sink:      sink,
		cfg:       cfg,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// ProcessBatch delivers one batch of pending messages and returns how many
// were published. Delivery failures are recorded on the message, not returned.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	published := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		q := r.builder.Select(outboxColumns...).
			From(outboxTable).
			Where(squirrel.Eq{"status": OutboxStatusPending}).
			Where(squirrel.Or{
				squirrel.Eq{"next_retry_at": nil},
				squirrel.Expr("next_retry_at <= NOW()"),
			}).
			OrderBy("created_at").
			Limit(uint64(r.cfg.BatchSize)).
			Suffix("FOR UPDATE SKIP LOCKED")

		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build outbox query: %w", err)
		}

		var messages []*OutboxMessage
		if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, sql, args...); err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.deliver(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox delivery failed",
					"message_id", msg.ID,
					"retry_count", msg.RetryCount,
					"error", err,
				)
				if err := r.markFailed(ctx, msg, err); err != nil {
					return err
				}
				continue
			}
			if err := r.markPublished(ctx, msg); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}

func (r *OutboxRelay) deliver(ctx context.Context, msg *OutboxMessage) error {
	if msg.EventType != EventStatusChanged {
		return fmt.Errorf("unknown event type %q", msg.EventType)
	}
	var change notify.StatusChange
	if err := json.Unmarshal(msg.Payload, &change); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return r.sink.Send(ctx, change)
}

func (r *OutboxRelay) markPublished(ctx context.Context, msg *OutboxMessage) error {
	q := r.builder.Update(outboxTable).
		Set("status", OutboxStatusPublished).
		Set("published_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": msg.ID})
	return r.exec(ctx, q)
}

func (r *OutboxRelay) markFailed(ctx context.Context, msg *OutboxMessage, cause error) error {
	retries := msg.RetryCount + 1
	status := OutboxStatusPending
	if retries >= r.cfg.MaxRetries {
		status = OutboxStatusFailed
	}
	q := r.builder.Update(outboxTable).
		Set("retry_count", retries).
		Set("last_error", cause.Error()).
		Set("next_retry_at", time.Now().UTC().Add(time.Duration(retries)*r.cfg.Backoff)).
		Set("status", status).
		Where(squirrel.Eq{"id": msg.ID})
	return r.exec(ctx, q)
}

func (r *OutboxRelay) exec(ctx context.Context, q squirrel.UpdateBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build outbox update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update outbox message: %w", err)
	}
	return nil
}

// Purge deletes published messages older than retention.
func (r *OutboxRelay) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	q := r.builder.Delete(outboxTable).
		Where(squirrel.Eq{"status": OutboxStatusPublished}).
		Where(squirrel.Lt{"published_at": time.Now().UTC().Add(-retention)})

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build outbox purge: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}
