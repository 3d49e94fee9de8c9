package notify

import (
	"context"

	"stockflow/pkg/logger"
)

// LogSink writes changes to the structured log.
type LogSink struct {
	log *logger.Logger
}

// NewLogSink creates a sink writing through log (the default logger if nil).
func NewLogSink(log *logger.Logger) *LogSink {
	if log == nil {
		log = logger.Default()
	}
	return &LogSink{log: log.WithComponent("notify")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, change StatusChange) error {
	s.log.WithContext(ctx).Infow("status changed",
		"subject", change.Subject,
		"domain", change.Domain,
		"subject_id", change.SubjectID,
		"old_status", change.OldStatus,
		"new_status", change.NewStatus,
		"affected_users", change.AffectedUsers,
		"actor", change.ActorID,
	)
	return nil
}
