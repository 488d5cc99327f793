package notifier

import (
	"context"

	"go.uber.org/zap"
)

// Sink delivers reminders somewhere a person will see them
type Sink interface {
	Name() string
	Notify(ctx context.Context, r Reminder) error
	Close() error
}

// LogSink writes reminders to the structured log. It is always enabled.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Notify(_ context.Context, r Reminder) error {
	s.logger.Info(r.Title,
		zap.String("tag", r.Tag),
		zap.String("body", r.Body),
		zap.Time("due_at", r.DueAt),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
