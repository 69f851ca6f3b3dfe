package openweather

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for breaker tests ---

type countingSource struct {
	calls   int
	err     error
	reading domain.RainfallReading
}

func (m *countingSource) FetchRainfall(_ context.Context, _, _ string) (domain.RainfallReading, error) {
	m.calls++
	return m.reading, m.err
}

func newTestBreaker(inner domain.DataSource, failures int, open time.Duration) *BreakerSource {
	return NewBreakerSource(inner, failures, open, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBreakerSource_PassesThrough(t *testing.T) {
	v := 3.4
	inner := &countingSource{reading: domain.RainfallReading{OneHourMm: &v}}
	b := newTestBreaker(inner, 3, time.Minute)

	reading, err := b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
	require.NoError(t, err)
	assert.Equal(t, 3.4, reading.RainfallMm())
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerSource_OpensAfterConsecutiveFailures(t *testing.T) {
	upstreamErr := errors.New("status 503")
	inner := &countingSource{err: upstreamErr}
	b := newTestBreaker(inner, 2, time.Minute)

	for range 2 {
		_, err := b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
		require.ErrorIs(t, err, upstreamErr)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 2, inner.calls, "open breaker must not call upstream")
}

func TestBreakerSource_HalfOpenProbeCloses(t *testing.T) {
	inner := &countingSource{err: errors.New("boom")}
	b := newTestBreaker(inner, 1, 20*time.Millisecond)

	_, err := b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(40 * time.Millisecond)
	inner.err = nil

	_, err = b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreakerSource_CancellationDoesNotTrip(t *testing.T) {
	inner := &countingSource{err: context.Canceled}
	b := newTestBreaker(inner, 1, time.Minute)

	_, err := b.FetchRainfall(context.Background(), "Nairobi", testAPIKey)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
