// Package openmeteo implements geocoding against the Open-Meteo geocoding API.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
)

const (
	// ProviderName identifies this geocoding provider.
	ProviderName = "open-meteo-geocoding"

	// DefaultBaseURL is the Open-Meteo geocoding API host.
	DefaultBaseURL = "https://geocoding-api.open-meteo.com"

	// DefaultLanguage is the language for returned place names.
	DefaultLanguage = "ja"
)

// ClientConfig holds configuration for the geocoding client.
type ClientConfig struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// Language defaults to DefaultLanguage.
	Language string

	// HTTPClient defaults to a resilient client named ProviderName.
	HTTPClient *resilience.Client
}

// Client is an Open-Meteo geocoding client.
type Client struct {
	baseURL    string
	language   string
	httpClient *resilience.Client
}

// NewClient creates a geocoding client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	language := cfg.Language
	if language == "" {
		language = DefaultLanguage
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(ProviderName))
	}

	return &Client{
		baseURL:    baseURL,
		language:   language,
		httpClient: httpClient,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Search asks for a single candidate and returns it. Ranking is left to the
// upstream; the first entry wins.
func (c *Client) Search(ctx context.Context, name string) (*geocoding.Location, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", "1")
	q.Set("language", c.language)
	q.Set("format", "json")

	endpoint := c.baseURL + "/v1/search?" + q.Encode()

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
		return nil, &geocoding.UnavailableError{StatusCode: resp.StatusCode}
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(body.Results) == 0 {
		return nil, geocoding.ErrPlaceNotFound
	}

	first := body.Results[0]
	displayName := first.Name
	if strings.TrimSpace(displayName) == "" {
		displayName = name
	}

	return &geocoding.Location{
		Latitude:    first.Latitude,
		Longitude:   first.Longitude,
		DisplayName: displayName,
	}, nil
}

// Open-Meteo geocoding response structure.
type searchResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}
