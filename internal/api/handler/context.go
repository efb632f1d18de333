package handler

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/tenkimap/tenkimap/internal/api/middleware"
	"github.com/tenkimap/tenkimap/internal/api/models"
)

// adminSubject returns the authenticated admin for audit logging.
func adminSubject(ctx context.Context) string {
	if subject := middleware.GetAdminSubject(ctx); subject != "" {
		return subject
	}
	return "unknown"
}

// parseCoordinate parses lat and lon from form or query values. Latitude
// must lie in [-90, 90]; longitude only needs to be finite because the map
// reports wrapped longitudes past ±180.
func parseCoordinate(lat, lon string) (float64, float64, []models.FieldError) {
	var errs []models.FieldError

	latV, err := parseFinite(lat)
	switch {
	case err != nil:
		errs = append(errs, fieldError("lat", err))
	case latV < -90 || latV > 90:
		errs = append(errs, models.FieldError{Field: "lat", Message: "must be between -90 and 90", Code: models.CodeOutOfRange})
	}

	lonV, err := parseFinite(lon)
	if err != nil {
		errs = append(errs, fieldError("lon", err))
	}

	return latV, lonV, errs
}

var (
	errRequired  = errors.New("is required")
	errNotFinite = errors.New("must be a finite number")
)

func parseFinite(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errRequired
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errNotFinite
	}
	return v, nil
}

func fieldError(field string, err error) models.FieldError {
	code := models.CodeInvalid
	if errors.Is(err, errRequired) {
		code = models.CodeRequired
	}
	return models.FieldError{Field: field, Message: err.Error(), Code: code}
}
