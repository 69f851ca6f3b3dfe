package openweather

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerSource wraps a DataSource with a circuit breaker. While the breaker
// is open, fetches fail immediately with gobreaker.ErrOpenState. It never retries.
type BreakerSource struct {
	inner   domain.DataSource
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerSource trips after consecutiveFailures failed fetches and stays
// open for openTimeout before letting a single probe through.
func NewBreakerSource(inner domain.DataSource, consecutiveFailures int, openTimeout time.Duration, logger *slog.Logger) *BreakerSource {
	return &BreakerSource{
		inner: inner,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "openweathermap",
			Timeout: openTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= uint32(consecutiveFailures)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
			// A cancelled caller says nothing about the upstream's health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
	}
}

func (b *BreakerSource) FetchRainfall(ctx context.Context, location, credential string) (domain.RainfallReading, error) {
	res, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.FetchRainfall(ctx, location, credential)
	})
	if err != nil {
		return domain.RainfallReading{}, err
	}
	return res.(domain.RainfallReading), nil
}

// State reports the current breaker state.
func (b *BreakerSource) State() gobreaker.State {
	return b.breaker.State()
}
