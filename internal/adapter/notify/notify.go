// Package notify provides NotificationSink implementations that need no broker.
package notify

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/couchcryptid/rainfall-insurance-service/internal/observability"
)

// LogSink writes every event to the structured log.
type LogSink struct {
	logger  *slog.Logger
	metrics *observability.Metrics
}

func NewLogSink(logger *slog.Logger, metrics *observability.Metrics) *LogSink {
	return &LogSink{logger: logger, metrics: metrics}
}

func (s *LogSink) Emit(ctx context.Context, event domain.Event) {
	s.logger.InfoContext(ctx, "policy event",
		"event", event.Name,
		"event_id", event.ID,
		"occurred_at", event.OccurredAt,
		"payload", event.Payload,
	)
	s.metrics.Notifications.WithLabelValues(string(event.Name), "sent").Inc()
}

// Fanout delivers each event to every sink in order.
type Fanout []domain.NotificationSink

func (f Fanout) Emit(ctx context.Context, event domain.Event) {
	for _, s := range f {
		s.Emit(ctx, event)
	}
}
