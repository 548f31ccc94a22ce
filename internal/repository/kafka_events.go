package repository

import (
	"context"

	domrepo "RiskGate/internal/domain/repository"
	pkgkafka "RiskGate/pkg/kafka"
	applogger "RiskGate/pkg/logger"
)

// KafkaEventSink publishes domain notifications to Kafka. Topic names map
// 1:1 onto Kafka topics; payloads are JSON-encoded by the producer. Keys
// are the topic name itself so all events of a kind land on one partition
// in order.
type KafkaEventSink struct {
	producer *pkgkafka.Producer
	l        *applogger.Logger
}

func NewKafkaEventSink(producer *pkgkafka.Producer, l *applogger.Logger) *KafkaEventSink {
	return &KafkaEventSink{producer: producer, l: l}
}

func (s *KafkaEventSink) Publish(ctx context.Context, topic domrepo.Topic, payload interface{}) error {
	err := s.producer.Publish(ctx, string(topic), []byte(topic), payload)
	if err != nil && s.l != nil {
		s.l.Error("event publish failed",
			applogger.String("topic", string(topic)),
			applogger.Error(err),
		)
	}
	return err
}

func (s *KafkaEventSink) Close() error {
	return s.producer.Close()
}

// LogEventSink writes notifications to the structured log. Used when Kafka
// is disabled so the rest of the system can stay sink-agnostic.
type LogEventSink struct {
	l *applogger.Logger
}

func NewLogEventSink(l *applogger.Logger) *LogEventSink {
	return &LogEventSink{l: l}
}

func (s *LogEventSink) Publish(_ context.Context, topic domrepo.Topic, payload interface{}) error {
	if s.l != nil {
		s.l.Info("event",
			applogger.String("topic", string(topic)),
			applogger.Any("payload", payload),
		)
	}
	return nil
}

func (s *LogEventSink) Close() error { return nil }
