package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageWriter is the part of kafka.Writer the sink uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ MessageWriter = (*kafka.Writer)(nil)

// KafkaSink publishes reminders to a topic keyed by tag, so every reminder
// for one medication lands on the same partition in order.
type KafkaSink struct {
	writer MessageWriter
	topic  string
	logger *zap.Logger
}

// NewKafkaSink creates a sink writing to topic on brokers
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	logger.Info("kafka producer created", zap.String("topic", topic), zap.Strings("brokers", brokers))
	return NewKafkaSinkWithWriter(writer, topic, logger), nil
}

// NewKafkaSinkWithWriter creates a sink over an existing writer
func NewKafkaSinkWithWriter(w MessageWriter, topic string, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{writer: w, topic: topic, logger: logger}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Notify(ctx context.Context, r Reminder) error {
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(r.Tag),
		Value:   value,
		Headers: []kafka.Header{{Key: TagHeader, Value: []byte(r.Tag)}},
		Time:    r.FiredAt,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", s.topic, err)
	}
	return nil
}

func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
