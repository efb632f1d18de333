package lookup

import (
	"errors"

	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/weather"
)

// ErrorKind is the class of a failed lookup.
type ErrorKind string

const (
	KindNone                 ErrorKind = ""
	KindPlaceNotFound        ErrorKind = "PLACE_NOT_FOUND"
	KindGeocodingUnavailable ErrorKind = "GEOCODING_UNAVAILABLE"
	KindWeatherUnavailable   ErrorKind = "WEATHER_UNAVAILABLE"
	KindUnknown              ErrorKind = "UNKNOWN"
)

var messages = map[ErrorKind]string{
	KindPlaceNotFound:        "場所が見つかりませんでした",
	KindGeocodingUnavailable: "位置情報の取得に失敗しました",
	KindWeatherUnavailable:   "天気情報の取得に失敗しました",
	KindUnknown:              "エラーが発生しました",
}

// Classify maps an error from the geocoding or weather packages to its kind.
// Transport failures, an open circuit and decode errors are all KindUnknown.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, geocoding.ErrPlaceNotFound):
		return KindPlaceNotFound
	case errors.Is(err, geocoding.ErrUnavailable):
		return KindGeocodingUnavailable
	case errors.Is(err, weather.ErrUnavailable):
		return KindWeatherUnavailable
	default:
		return KindUnknown
	}
}

// Message returns the user-facing text for kind.
func Message(kind ErrorKind) string {
	return messages[kind]
}

// StatusCode returns the upstream HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var geo *geocoding.UnavailableError
	if errors.As(err, &geo) {
		return geo.StatusCode
	}
	var wx *weather.UnavailableError
	if errors.As(err, &wx) {
		return wx.StatusCode
	}
	return 0
}
