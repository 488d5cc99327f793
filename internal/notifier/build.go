package notifier

import (
	"fmt"

	"github.com/vcscsvcscs/medireminder/internal/config"
	"go.uber.org/zap"
)

// BuildSinks returns the log sink plus every sink enabled in cfg. On error
// the sinks opened so far are closed.
func BuildSinks(cfg config.NotifierConfig, logger *zap.Logger) ([]Sink, error) {
	sinks := []Sink{NewLogSink(logger)}

	fail := func(err error) ([]Sink, error) {
		for _, s := range sinks {
			_ = s.Close()
		}
		return nil, err
	}

	if cfg.Telegram.Token != "" {
		s, err := NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			return fail(fmt.Errorf("telegram sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	if cfg.NATS.URL != "" {
		s, err := NewNATSSink(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return fail(fmt.Errorf("nats sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		s, err := NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		if err != nil {
			return fail(fmt.Errorf("kafka sink: %w", err))
		}
		sinks = append(sinks, s)
	}

	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		names = append(names, s.Name())
	}
	logger.Info("reminder sinks configured", zap.Strings("sinks", names))
	return sinks, nil
}
