// Package openweather implements domain.DataSource using the OpenWeatherMap
// current weather API.
package openweather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/rainfall-insurance-service/internal/domain"
)

// DefaultBaseURL is the OpenWeatherMap current weather endpoint.
const DefaultBaseURL = "https://api.openweathermap.org/data/2.5/weather"

// Client fetches hourly rainfall by city name.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates an OpenWeatherMap client. The API key is supplied per
// call, since it belongs to the registered policy.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		logger:  logger,
	}
}

// FetchRainfall returns the rainfall for the last hour at location. A response
// without a rain block, or without its "1h" field, yields a reading with no
// measurement.
func (c *Client) FetchRainfall(ctx context.Context, location, credential string) (domain.RainfallReading, error) {
	params := url.Values{
		"q":     {location},
		"appid": {credential},
		"units": {"metric"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return domain.RainfallReading{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which carries the API key.
		return domain.RainfallReading{}, fmt.Errorf("weather request for %q: %w", location, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return domain.RainfallReading{}, fmt.Errorf("openweathermap API error: status %d: %s", resp.StatusCode, body)
	}

	var owmResp response
	if err := json.NewDecoder(resp.Body).Decode(&owmResp); err != nil {
		return domain.RainfallReading{}, fmt.Errorf("decode response: %w", err)
	}

	reading := domain.RainfallReading{}
	if owmResp.Rain != nil {
		reading.OneHourMm = owmResp.Rain.OneHour
	}
	c.logger.Debug("rainfall fetched", "location", location, "rainfall_mm", reading.RainfallMm(), "reported", reading.OneHourMm != nil)
	return reading, nil
}

func redact(err error) error {
	var urlErr *url.Error
	if !errors.As(err, &urlErr) {
		return err
	}
	return &url.Error{Op: urlErr.Op, URL: "<redacted>", Err: urlErr.Err}
}

// OpenWeatherMap API response types.

type response struct {
	Rain *rain `json:"rain"`
}

type rain struct {
	OneHour *float64 `json:"1h"`
}
