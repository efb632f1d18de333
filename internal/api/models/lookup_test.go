package models_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/weather"
)

func ptr[T any](v T) *T { return &v }

func TestNewPlace(t *testing.T) {
	p := models.NewPlace(&geocoding.Location{Latitude: 34.6937, Longitude: 135.5023, DisplayName: "大阪"})

	assert.Equal(t, "大阪", p.Name)
	assert.InDelta(t, 34.6937, p.Location.Lat, 1e-9)
	assert.InDelta(t, 135.5023, p.Location.Lon, 1e-9)
}

func TestNewConditions(t *testing.T) {
	c := models.NewConditions(&weather.CurrentConditions{
		TemperatureC:        ptr(3.0),
		RelativeHumidityPct: ptr(40.0),
		WeatherCode:         ptr(71),
		WindSpeedKmh:        ptr(20.0),
	})

	assert.Equal(t, "弱い雪", c.Description)
	assert.Equal(t, string(weather.IconOther), c.Icon)
	assert.Equal(t, weather.ClothingAdvice(3), c.Advice)
}

func TestNewConditions_MissingFieldsAreNull(t *testing.T) {
	c := models.NewConditions(&weather.CurrentConditions{WeatherCode: ptr(2)})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Nil(t, raw["temperatureC"])
	assert.Contains(t, raw, "temperatureC")
	assert.Equal(t, "", raw["advice"])
	assert.Equal(t, "CLOUDY", raw["icon"])
}

func TestNewSessionState(t *testing.T) {
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	s := models.NewSessionState(lookup.State{
		Status:     lookup.StatusSuccess,
		Label:      "東京",
		Conditions: &weather.CurrentConditions{TemperatureC: ptr(16.0), WeatherCode: ptr(0)},
		Center:     lookup.TokyoCenter,
		Seq:        3,
		UpdatedAt:  now,
	})

	assert.Equal(t, "SUCCESS", s.Status)
	assert.Equal(t, "東京", s.Label)
	require.NotNil(t, s.Conditions)
	assert.Equal(t, "快晴", s.Conditions.Description)
	assert.Equal(t, uint64(3), s.Seq)
	require.NotNil(t, s.UpdatedAt)
	assert.Equal(t, now, s.UpdatedAt.Time())
}

func TestNewSessionState_Failure(t *testing.T) {
	s := models.NewSessionState(lookup.State{
		Status:    lookup.StatusFailure,
		Error:     lookup.Message(lookup.KindPlaceNotFound),
		ErrorKind: lookup.KindPlaceNotFound,
	})

	assert.Nil(t, s.Conditions)
	assert.Nil(t, s.UpdatedAt)
	assert.Equal(t, string(lookup.KindPlaceNotFound), s.ErrorKind)
	assert.NotEmpty(t, s.Error)
}

func TestTimestamp_RoundTrip(t *testing.T) {
	ts := models.Timestamp(time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("JST", 9*3600)))

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-01-01T18:04:05Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Time().Equal(ts.Time()))
}
