package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkimap/tenkimap/internal/api"
	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/auth"
	"github.com/tenkimap/tenkimap/internal/featureflags"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	geoopenmeteo "github.com/tenkimap/tenkimap/internal/geocoding/openmeteo"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/session"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
	"github.com/tenkimap/tenkimap/internal/view"
	"github.com/tenkimap/tenkimap/internal/weather"
	wxopenmeteo "github.com/tenkimap/tenkimap/internal/weather/openmeteo"
)

const testSigningKey = "test-secret-key-for-testing-only"

// testEnv is a router wired to fake Open-Meteo servers.
type testEnv struct {
	router        http.Handler
	jwt           *auth.JWTService
	flags         *featureflags.Service
	forecastCalls atomic.Int32
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{}

	geoServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "東京":
			io.WriteString(w, `{"results":[{"name":"東京","latitude":35.6895,"longitude":139.69171}]}`)
		case "大阪":
			io.WriteString(w, `{"results":[{"name":"大阪","latitude":34.6937,"longitude":135.5023}]}`)
		default:
			io.WriteString(w, `{"generationtime_ms":0.5}`)
		}
	}))
	t.Cleanup(geoServer.Close)

	wxServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		env.forecastCalls.Add(1)
		io.WriteString(w, `{"current":{"temperature_2m":4.999,"relative_humidity_2m":40,"weather_code":61,"wind_speed_10m":12.5}}`)
	}))
	t.Cleanup(wxServer.Close)

	logger := zerolog.New(io.Discard)
	registry := resilience.NewRegistry()

	geoHTTP := resilience.NewClient(resilience.DefaultClientConfig(geoopenmeteo.ProviderName))
	wxHTTP := resilience.NewClient(resilience.DefaultClientConfig(wxopenmeteo.ProviderName))
	registry.Register(geoHTTP)
	registry.Register(wxHTTP)

	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geoopenmeteo.NewClient(geoopenmeteo.ClientConfig{BaseURL: geoServer.URL, HTTPClient: geoHTTP}),
		Logger:   logger,
		Registry: registry,
	})
	forecaster := weather.NewService(weather.ServiceConfig{
		Provider: wxopenmeteo.NewClient(wxopenmeteo.ClientConfig{BaseURL: wxServer.URL, HTTPClient: wxHTTP, Logger: logger}),
		Logger:   logger,
		Registry: registry,
	})

	defaults := featureflags.DefaultFlags()
	env.flags = featureflags.NewService(featureflags.ServiceConfig{
		Repository:   featureflags.NewInMemoryRepositoryWithFlags(defaults),
		Logger:       logger,
		DefaultFlags: defaults,
	})

	sessions := session.NewStore(session.StoreConfig{
		NewController: func() *lookup.Controller {
			return lookup.NewController(lookup.Config{
				Geocoder:     geocoder,
				Forecaster:   forecaster,
				DefaultPlace: featureflags.DefaultPlace,
				DiscardStale: env.flags.DiscardStaleLookups,
				Logger:       logger,
			})
		},
		Logger: logger,
	})

	renderer, err := view.NewRenderer()
	require.NoError(t, err)

	env.jwt = auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey})
	env.router = api.NewRouter(api.RouterConfig{
		Version:            "test",
		Logger:             logger,
		Geocoder:           geocoder,
		Forecaster:         forecaster,
		Sessions:           sessions,
		Renderer:           renderer,
		FeatureFlagService: env.flags,
		JWTService:         env.jwt,
		Registry:           registry,
	})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAdminToken("ops@tenkimap")
	require.NoError(t, err)
	return token
}

func TestRouter_HealthCheck(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", rec.Header().Get("Content-Security-Policy"))

	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
}

func TestRouter_SystemStatusListsUpstreams(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	names := make([]string, 0, len(status.Upstreams))
	for _, u := range status.Upstreams {
		names = append(names, u.Name)
	}
	assert.ElementsMatch(t, []string{geoopenmeteo.ProviderName, wxopenmeteo.ProviderName}, names)
}

func TestRouter_Weather(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/weather?place="+url.QueryEscape("東京"), http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.Weather
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "東京", body.Place.Name)
	assert.Equal(t, "弱い雨", body.Conditions.Description)
	assert.Equal(t, string(weather.IconRainy), body.Conditions.Icon)
	assert.Equal(t, weather.ClothingAdvice(4.999), body.Conditions.Advice)
}

func TestRouter_WeatherUnknownPlace(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/weather?place=zzzz", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Zero(t, env.forecastCalls.Load())
}

func TestRouter_ConditionsValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/conditions?lat=100&lon=0", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SessionFlow(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/session", http.NoBody))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodPost, "/v1/session/search", strings.NewReader(`{"place":"大阪"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(cookies[0])
	rec = env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	var state models.SessionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "大阪", state.Label)
	assert.Equal(t, "SUCCESS", state.Status)
}

func TestRouter_SessionRejectsFormBody(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/session/click", strings.NewReader("lat=1&lon=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_Page(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	csp := rec.Header().Get("Content-Security-Policy")
	assert.Contains(t, csp, "https://unpkg.com")
	assert.Contains(t, csp, "https://*.tile.openstreetmap.org")
	assert.Contains(t, rec.Body.String(), "弱い雨")
}

func TestRouter_PageSearchRedirect(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader("place="+url.QueryEscape("大阪")))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := env.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?q="+url.QueryEscape("大阪"), rec.Header().Get("Location"))
}

func TestRouter_Static(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/map.js", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "L.tileLayer")
}

func TestRouter_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/nothing-here", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/v1/admin/feature-flags", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_AdminUpdatesFlags(t *testing.T) {
	env := newTestEnv(t)
	token := env.adminToken(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/admin/feature-flags",
		strings.NewReader(`{"updates":[{"key":"map_zoom","value":14}],"reason":"closer view"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := env.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 14, env.flags.MapZoom(req.Context()))

	page := env.do(httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Contains(t, page.Body.String(), `data-zoom="14"`)
}
