package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/tenkimap/tenkimap/internal/api/middleware"
	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/session"
	"github.com/tenkimap/tenkimap/internal/weather"
)

func ptr[T any](v T) *T { return &v }

// fakeGeocoder resolves names from a fixed table.
type fakeGeocoder struct {
	places map[string]*geocoding.Location
	err    error
}

func (g *fakeGeocoder) ResolvePlace(_ context.Context, name string) (*geocoding.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, geocoding.ErrEmptyPlaceName
	}
	if g.err != nil {
		return nil, g.err
	}
	loc, ok := g.places[name]
	if !ok {
		return nil, geocoding.ErrPlaceNotFound
	}
	return loc, nil
}

// fakeForecaster returns the same reading everywhere and records the points
// it was asked for.
type fakeForecaster struct {
	cond *weather.CurrentConditions
	err  error

	mu     sync.Mutex
	points [][2]float64
}

func (f *fakeForecaster) FetchConditions(_ context.Context, lat, lon float64) (*weather.CurrentConditions, error) {
	f.mu.Lock()
	f.points = append(f.points, [2]float64{lat, lon})
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.cond, nil
}

func (f *fakeForecaster) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.points)
}

func newFakes() (*fakeGeocoder, *fakeForecaster) {
	geo := &fakeGeocoder{places: map[string]*geocoding.Location{
		"東京": {Latitude: 35.6895, Longitude: 139.69171, DisplayName: "東京"},
		"大阪": {Latitude: 34.6937, Longitude: 135.5023, DisplayName: "大阪"},
	}}
	wx := &fakeForecaster{cond: &weather.CurrentConditions{
		TemperatureC:        ptr(16.2),
		RelativeHumidityPct: ptr(71.0),
		WeatherCode:         ptr(1),
		WindSpeedKmh:        ptr(8.4),
	}}
	return geo, wx
}

func newSessionStore(geo lookup.Geocoder, wx lookup.Forecaster) *session.Store {
	return session.NewStore(session.StoreConfig{
		NewController: func() *lookup.Controller {
			return lookup.NewController(lookup.Config{
				Geocoder:     geo,
				Forecaster:   wx,
				DefaultPlace: "東京",
				Logger:       zerolog.Nop(),
			})
		},
		Logger: zerolog.Nop(),
	})
}

// serve runs h behind the request ID and logging middleware, as the router
// does.
func serve(h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	chain := middleware.RequestID(middleware.Logger(zerolog.New(io.Discard))(h))
	chain.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()

	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	return decodeJSON[models.Problem](t, rec)
}

// sessionCookie returns the session cookie set on rec.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie set", session.CookieName)
	return nil
}
