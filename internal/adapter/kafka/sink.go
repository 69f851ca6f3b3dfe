package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/config"
	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/couchcryptid/rainfall-insurance-service/internal/observability"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	headerEventName = "event_name"
	headerEventID   = "event_id"

	// messageKey is shared by every event of the service's single policy, so
	// they land on one partition in emission order.
	messageKey = "policy"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Sink publishes policy events to a Kafka topic.
// It implements domain.NotificationSink.
type Sink struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSink creates an asynchronous Kafka producer for the configured events topic.
// Delivery results are reported through the completion callback, so Emit never
// waits on the brokers.
func NewSink(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Sink {
	s := &Sink{logger: logger, metrics: metrics}
	s.writer = &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		Async:        true,
		Completion:   s.completed,
	}
	return s
}

// Emit serializes the event and hands it to the writer.
func (s *Sink) Emit(ctx context.Context, event domain.Event) {
	msg, err := serializeToMessage(event)
	if err != nil {
		s.logger.Warn("serialize event failed", "event", event.Name, "event_id", event.ID, "error", err)
		s.metrics.Notifications.WithLabelValues(string(event.Name), "error").Inc()
		return
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Warn("kafka publish failed", "event", event.Name, "event_id", event.ID, "error", err)
		s.metrics.Notifications.WithLabelValues(string(event.Name), "error").Inc()
	}
}

func (s *Sink) completed(msgs []kafkago.Message, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "error"
		s.logger.Warn("kafka delivery failed", "messages", len(msgs), "error", err)
	}
	for _, m := range msgs {
		s.metrics.Notifications.WithLabelValues(headerValue(m, headerEventName), outcome).Inc()
	}
}

func (s *Sink) Close() error {
	return s.writer.Close()
}

// serializeToMessage marshals an Event into a Kafka message under the policy key.
func serializeToMessage(event domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize policy event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey),
		Value: data,
		Headers: []kafkago.Header{
			{Key: headerEventName, Value: []byte(event.Name)},
			{Key: headerEventID, Value: []byte(event.ID)},
			{Key: "occurred_at", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

func headerValue(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
