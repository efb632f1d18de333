package models

import (
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/weather"
)

// Place is a geocoded place.
type Place struct {
	Name     string `json:"name"`
	Location Point  `json:"location"`
}

// Conditions is a current-weather reading. Absent readings are null.
type Conditions struct {
	TemperatureC        *float64 `json:"temperatureC"`
	RelativeHumidityPct *float64 `json:"relativeHumidityPct"`
	WeatherCode         *int     `json:"weatherCode"`
	WindSpeedKmh        *float64 `json:"windSpeedKmh"`

	Description string `json:"description"`
	Icon        string `json:"icon"`
	Advice      string `json:"advice"`
}

// Weather is a place together with its conditions.
type Weather struct {
	Place      Place      `json:"place"`
	Conditions Conditions `json:"conditions"`
}

// SessionState is a widget session's state.
type SessionState struct {
	Status     string      `json:"status"`
	Label      string      `json:"label"`
	Loading    bool        `json:"loading"`
	Conditions *Conditions `json:"conditions,omitempty"`
	Error      string      `json:"error,omitempty"`
	ErrorKind  string      `json:"errorKind,omitempty"`
	Center     Point       `json:"center"`
	Seq        uint64      `json:"seq"`
	UpdatedAt  *Timestamp  `json:"updatedAt,omitempty"`
}

// SearchRequest is the body of POST /v1/session/search.
type SearchRequest struct {
	Place string `json:"place"`
}

// ClickRequest is the body of POST /v1/session/click.
type ClickRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// NewPlace converts a geocoded location.
func NewPlace(loc *geocoding.Location) Place {
	return Place{
		Name:     loc.DisplayName,
		Location: Point{Lat: loc.Latitude, Lon: loc.Longitude},
	}
}

// NewConditions converts a reading, deriving description, icon and advice.
func NewConditions(c *weather.CurrentConditions) Conditions {
	return Conditions{
		TemperatureC:        c.TemperatureC,
		RelativeHumidityPct: c.RelativeHumidityPct,
		WeatherCode:         c.WeatherCode,
		WindSpeedKmh:        c.WindSpeedKmh,
		Description:         c.Description(),
		Icon:                string(c.Icon()),
		Advice:              c.Advice(),
	}
}

// NewSessionState converts a controller snapshot.
func NewSessionState(s lookup.State) SessionState {
	out := SessionState{
		Status:    string(s.Status),
		Label:     s.Label,
		Loading:   s.Loading,
		Error:     s.Error,
		ErrorKind: string(s.ErrorKind),
		Center:    Point{Lat: s.Center.Latitude, Lon: s.Center.Longitude},
		Seq:       s.Seq,
		UpdatedAt: NewTimestamp(&s.UpdatedAt),
	}
	if s.Conditions != nil {
		c := NewConditions(s.Conditions)
		out.Conditions = &c
	}
	return out
}
