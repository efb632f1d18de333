// Package geocoding resolves free-text place names to coordinates.
package geocoding

import (
	"errors"
	"fmt"
)

// Geocoding errors.
var (
	// ErrEmptyPlaceName is returned for a blank query; nothing is sent upstream.
	ErrEmptyPlaceName = errors.New("place name is empty")

	// ErrPlaceNotFound is returned when the upstream answers with zero results.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrUnavailable matches every *UnavailableError via errors.Is.
	ErrUnavailable = errors.New("geocoding unavailable")
)

// UnavailableError is a non-success HTTP status from the geocoding upstream.
type UnavailableError struct {
	StatusCode int
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("geocoding unavailable: status %d", e.StatusCode)
}

// Is lets errors.Is(err, ErrUnavailable) match any status.
func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Location is a resolved point with its display name.
type Location struct {
	Latitude    float64
	Longitude   float64
	DisplayName string
}
