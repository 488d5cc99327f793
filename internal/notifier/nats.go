package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// TagHeader carries the reminder tag on broker messages
const TagHeader = "Reminder-Tag"

// NATSSink publishes reminders as JSON on a subject
type NATSSink struct {
	nc      *nats.Conn
	subject string
	owned   bool
	logger  *zap.Logger
}

// NewNATSSink connects to url and publishes on subject
func NewNATSSink(url, subject string, logger *zap.Logger) (*NATSSink, error) {
	nc, err := nats.Connect(url,
		nats.Name("medireminder"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	s := NewNATSSinkWithConn(nc, subject, logger)
	s.owned = true
	return s, nil
}

// NewNATSSinkWithConn publishes over an existing connection, which the sink
// does not close.
func NewNATSSinkWithConn(nc *nats.Conn, subject string, logger *zap.Logger) *NATSSink {
	return &NATSSink{nc: nc, subject: subject, logger: logger}
}

func (s *NATSSink) Name() string { return "nats" }

func (s *NATSSink) Notify(ctx context.Context, r Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	msg := nats.NewMsg(s.subject)
	msg.Data = data
	msg.Header.Set(TagHeader, r.Tag)
	if err := s.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish to %s: %w", s.subject, err)
	}
	return nil
}

func (s *NATSSink) Close() error {
	if !s.owned {
		return nil
	}
	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}
