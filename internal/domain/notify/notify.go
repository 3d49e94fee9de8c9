// Package notify carries status-change notifications out of the engine.
// Delivery is best-effort: failures are logged and never reach the caller.
package notify

import (
	"context"
	"fmt"
	"time"

	"stockflow/internal/core/id"
	"stockflow/pkg/logger"
)

// SubjectKind is the kind of entity whose status changed.
type SubjectKind string

const (
	SubjectTicket       SubjectKind = "ticket"
	SubjectTicketDetail SubjectKind = "ticket_detail"
	SubjectStockAccount SubjectKind = "stock_account"
)

// StatusChange describes one observed status change.
type StatusChange struct {
	Subject       SubjectKind `json:"subject"`
	Domain        string      `json:"domain,omitempty"`
	SubjectID     id.ID       `json:"subjectId"`
	ParentID      *id.ID      `json:"parentId,omitempty"`
	OldStatus     string      `json:"oldStatus"`
	NewStatus     string      `json:"newStatus"`
	AffectedUsers []string    `json:"affectedUsers,omitempty"`
	ActorID       string      `json:"actorId"`
	OccurredAt    time.Time   `json:"occurredAt"`
}

// Notifier is informed of status changes after they are committed.
// Implementations must not block for long and must swallow their own errors.
type Notifier interface {
	NotifyStatusChange(ctx context.Context, change StatusChange)
}

// Sink delivers a change to one channel (log, Redis, outbox).
type Sink interface {
	Name() string
	Send(ctx context.Context, change StatusChange) error
}

// Dispatcher fans a change out to sinks, optionally filtered.
type Dispatcher struct {
	sinks  []Sink
	filter *Filter
}

// NewDispatcher creates a dispatcher. filter may be nil.
func NewDispatcher(filter *Filter, sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks, filter: filter}
}

// NotifyStatusChange implements Notifier.
func (d *Dispatcher) NotifyStatusChange(ctx context.Context, change StatusChange) {
	if d.filter != nil {
		match, err := d.filter.Match(change)
		if err != nil {
			logger.Warn(ctx, "notification filter failed, dispatching anyway", "error", err)
		} else if !match {
			return
		}
	}

	for _, s := range d.sinks {
		if err := safeSend(ctx, s, change); err != nil {
			logger.Warn(ctx, "notification delivery failed",
				"sink", s.Name(),
				"subject", change.Subject,
				"subject_id", change.SubjectID,
				"error", err,
			)
		}
	}
}

func safeSend(ctx context.Context, s Sink, change StatusChange) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return s.Send(ctx, change)
}

// Nop discards notifications.
type Nop struct{}

func (Nop) NotifyStatusChange(context.Context, StatusChange) {}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = Nop{}
)
