// Package response writes JSON bodies and problem responses.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tenkimap/tenkimap/internal/api/middleware"
	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/lookup"
)

// JSON writes data as JSON with the given status. A nil data writes no body.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set(middleware.RequestIDHeader, requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}

// LookupError writes the problem for a failed geocode or forecast call:
// 400 for a blank place name, 404 for an unknown place, 502 when an
// upstream answered with an error status and 500 otherwise. The detail is
// the same Japanese message the widget shows.
func LookupError(w http.ResponseWriter, r *http.Request, err error) {
	kind := lookup.Classify(err)
	detail := lookup.Message(kind)

	var problem *models.Problem
	switch kind {
	case lookup.KindPlaceNotFound:
		problem = models.NewPlaceNotFound(traceID(r), detail)
	case lookup.KindGeocodingUnavailable, lookup.KindWeatherUnavailable:
		problem = models.NewBadGateway(traceID(r), detail, lookup.StatusCode(err))
	default:
		if errors.Is(err, geocoding.ErrEmptyPlaceName) {
			BadRequest(w, r, "place is required", []models.FieldError{
				{Field: "place", Message: "must not be blank", Code: models.CodeRequired},
			})
			return
		}
		problem = models.NewInternalError(traceID(r), detail)
	}

	Error(w, r, problem.WithKind(string(kind)))
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
