// Package openmeteo implements the weather provider against the Open-Meteo
// forecast API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
	"github.com/tenkimap/tenkimap/internal/weather"
)

const (
	// ProviderName identifies this weather provider.
	ProviderName = "open-meteo-forecast"

	// DefaultBaseURL is the Open-Meteo forecast API host.
	DefaultBaseURL = "https://api.open-meteo.com"

	// DefaultTimezone is sent with every forecast request.
	DefaultTimezone = "Asia/Tokyo"
)

// Fields requested in the "current" block.
const (
	fieldTemperature = "temperature_2m"
	fieldHumidity    = "relative_humidity_2m"
	fieldWeatherCode = "weather_code"
	fieldWindSpeed   = "wind_speed_10m"
)

var currentFields = strings.Join([]string{
	fieldTemperature, fieldHumidity, fieldWeatherCode, fieldWindSpeed,
}, ",")

// ClientConfig holds configuration for the Open-Meteo client.
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Timezone defaults to DefaultTimezone.
	Timezone string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client is an Open-Meteo forecast API client.
type Client struct {
	baseURL    string
	timezone   string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new Open-Meteo client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timezone := cfg.Timezone
	if timezone == "" {
		timezone = DefaultTimezone
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		timezone:   timezone,
		httpClient: httpClient,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentConditions fetches the current block for a point.
func (c *Client) GetCurrentConditions(ctx context.Context, lat, lon float64) (*weather.CurrentConditions, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", currentFields)
	q.Set("timezone", c.timezone)

	endpoint := c.baseURL + "/v1/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &weather.UnavailableError{StatusCode: resp.StatusCode}
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return c.toConditions(body.Current), nil
}

// Open-Meteo forecast response structure. The current block is kept raw so a
// single odd field does not fail the whole lookup.
type forecastResponse struct {
	Current map[string]json.RawMessage `json:"current"`
}

func (c *Client) toConditions(current map[string]json.RawMessage) *weather.CurrentConditions {
	cond := &weather.CurrentConditions{
		TemperatureC:        c.float(current, fieldTemperature),
		RelativeHumidityPct: c.float(current, fieldHumidity),
		WindSpeedKmh:        c.float(current, fieldWindSpeed),
	}

	if code := c.float(current, fieldWeatherCode); code != nil {
		cond.WeatherCode = c.weatherCode(*code)
	}

	return cond
}

// weatherCode accepts only integral values within int32 range.
func (c *Client) weatherCode(f float64) *int {
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		c.logger.Warn().
			Float64("value", f).
			Msg("ignoring non-integer weather code")
		return nil
	}
	v := int(f)
	return &v
}

func (c *Client) float(current map[string]json.RawMessage, field string) *float64 {
	raw, ok := current[field]
	if !ok {
		return nil
	}

	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn().
			Str("field", field).
			RawJSON("value", raw).
			Msg("ignoring malformed forecast field")
		return nil
	}
	return v
}
