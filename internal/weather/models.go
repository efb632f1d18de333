// Package weather fetches current conditions and interprets them.
package weather

import (
	"errors"
	"fmt"
)

// Weather errors.
var (
	// ErrUnavailable matches every *UnavailableError via errors.Is.
	ErrUnavailable = errors.New("weather unavailable")
)

// UnavailableError is a non-success HTTP status from the forecast upstream.
type UnavailableError struct {
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("weather unavailable: status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnavailable) match any status.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// CurrentConditions are instantaneous readings for one point.
// A nil field was absent or malformed upstream and renders blank.
type CurrentConditions struct {
	// Temperature in Celsius
	TemperatureC *float64

	// Relative humidity percentage (0-100)
	RelativeHumidityPct *float64

	// WMO weather interpretation code
	WeatherCode *int

	// Wind speed at 10m in km/h
	WindSpeedKmh *float64
}

// Description returns the label for the weather code, or "" when absent.
func (c *CurrentConditions) Description() string {
	if c == nil || c.WeatherCode == nil {
		return ""
	}
	return Describe(*c.WeatherCode)
}

// Icon returns the icon category for the weather code.
func (c *CurrentConditions) Icon() Icon {
	if c == nil || c.WeatherCode == nil {
		return IconOther
	}
	return IconCategory(*c.WeatherCode)
}

// Advice returns clothing advice for the temperature, or "" when absent.
func (c *CurrentConditions) Advice() string {
	if c == nil || c.TemperatureC == nil {
		return ""
	}
	return ClothingAdvice(*c.TemperatureC)
}
