// Package mqtt publishes policy events to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/couchcryptid/rainfall-insurance-service/internal/config"
	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/couchcryptid/rainfall-insurance-service/internal/observability"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectMaxRetries = 5
	disconnectQuiesce = 250 // ms
)

// Connect dials the configured broker, retrying with exponential backoff.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetUsername(cfg.MQTTUsername)
	opts.SetPassword(cfg.MQTTPassword)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second

	var client pahomqtt.Client
	err := backoff.Retry(func() error {
		client = pahomqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(5 * time.Second) {
			return fmt.Errorf("connect to %s: timed out", cfg.MQTTBroker)
		}
		if err := token.Error(); err != nil {
			logger.Warn("mqtt connect failed", "broker", cfg.MQTTBroker, "error", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, connectMaxRetries-1), ctx))
	if err != nil {
		return nil, fmt.Errorf("mqtt connect after retries: %w", err)
	}

	logger.Info("mqtt connected", "broker", cfg.MQTTBroker)
	return client, nil
}

// Sink publishes events at QoS 1. It implements domain.NotificationSink.
type Sink struct {
	client  pahomqtt.Client
	topic   string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewSink creates a sink publishing to topic over an established client.
func NewSink(client pahomqtt.Client, topic string, logger *slog.Logger, metrics *observability.Metrics) *Sink {
	return &Sink{client: client, topic: topic, logger: logger, metrics: metrics}
}

// Emit publishes without waiting for the broker acknowledgement; the outcome
// is recorded when the token completes.
func (s *Sink) Emit(_ context.Context, event domain.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.failed(event, err)
		return
	}

	token := s.client.Publish(s.topic, 1, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			s.failed(event, err)
			return
		}
		s.metrics.Notifications.WithLabelValues(string(event.Name), "sent").Inc()
	}()
}

func (s *Sink) failed(event domain.Event, err error) {
	s.logger.Warn("mqtt publish failed", "event", event.Name, "event_id", event.ID, "topic", s.topic, "error", err)
	s.metrics.Notifications.WithLabelValues(string(event.Name), "error").Inc()
}

// Close disconnects the client.
func (s *Sink) Close() error {
	if s.client.IsConnected() {
		s.client.Disconnect(disconnectQuiesce)
	}
	return nil
}
