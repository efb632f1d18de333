// Package featureflags provides feature flag management for runtime configuration.
package featureflags

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDiscardStaleLookups drops responses from superseded lookups.
	// When off, the last response to arrive wins.
	FlagDiscardStaleLookups = "discard_stale_lookups"

	// FlagDefaultPlace is the place looked up when a session starts.
	FlagDefaultPlace = "default_place"

	// FlagMapZoom is the zoom level of the widget map.
	FlagMapZoom = "map_zoom"
)

// MaxMapZoom is the deepest zoom the tile server offers.
const MaxMapZoom = 19

// ErrInvalidValue is returned by Validate for a value of the wrong type or
// out of range.
var ErrInvalidValue = errors.New("invalid flag value")

// Defaults for the well-known flags.
const (
	DefaultPlace   = "東京"
	DefaultMapZoom = 10
)

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil, not found, or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// StringValue returns the flag value as a string.
// Returns the default value if the flag is nil, not found, or not a string.
func (f *Flag) StringValue(defaultValue string) string {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case string:
		return v
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer.
// Returns the default value if the flag is nil, not found, or not a number.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// DefaultFlags returns the default feature flags for the application.
func DefaultFlags() map[string]*Flag {
	return DefaultFlagsFor(DefaultPlace, DefaultMapZoom)
}

// DefaultFlagsFor returns the default flags with the configured start place
// and zoom.
func DefaultFlagsFor(place string, zoom int) map[string]*Flag {
	now := time.Now()
	return map[string]*Flag{
		FlagDiscardStaleLookups: {
			Key:       FlagDiscardStaleLookups,
			Value:     true,
			UpdatedAt: now,
		},
		FlagDefaultPlace: {
			Key:       FlagDefaultPlace,
			Value:     place,
			UpdatedAt: now,
		},
		FlagMapZoom: {
			Key:       FlagMapZoom,
			Value:     zoom,
			UpdatedAt: now,
		},
	}
}

// Validate checks value against the type and range of the flag key.
// Values are as decoded from JSON, so numbers arrive as float64.
func Validate(key string, value interface{}) error {
	switch key {
	case FlagDiscardStaleLookups:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("%w: %s must be a boolean", ErrInvalidValue, key)
		}
	case FlagDefaultPlace:
		s, ok := value.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: %s must be a non-empty string", ErrInvalidValue, key)
		}
	case FlagMapZoom:
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) || n < 0 || n > MaxMapZoom {
			return fmt.Errorf("%w: %s must be an integer between 0 and %d", ErrInvalidValue, key, MaxMapZoom)
		}
	}
	return nil
}
