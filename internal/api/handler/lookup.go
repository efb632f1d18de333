package handler

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/lookup"
)

// LookupHandler serves the stateless geocode and forecast endpoints.
type LookupHandler struct {
	geocoder   lookup.Geocoder
	forecaster lookup.Forecaster
}

// NewLookupHandler creates a LookupHandler.
func NewLookupHandler(geocoder lookup.Geocoder, forecaster lookup.Forecaster) *LookupHandler {
	return &LookupHandler{geocoder: geocoder, forecaster: forecaster}
}

// ResolvePlace handles GET /v1/places?name=.
func (h *LookupHandler) ResolvePlace(w http.ResponseWriter, r *http.Request) {
	loc, err := h.geocoder.ResolvePlace(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewPlace(loc))
}

// CurrentConditions handles GET /v1/conditions?lat=&lon=.
func (h *LookupHandler) CurrentConditions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, lon, fieldErrs := parseCoordinate(q.Get("lat"), q.Get("lon"))
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid coordinate", fieldErrs)
		return
	}

	cond, err := h.forecaster.FetchConditions(r.Context(), lat, lon)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewConditions(cond))
}

// Weather handles GET /v1/weather?place=: geocode, then fetch conditions at
// the resolved point.
func (h *LookupHandler) Weather(w http.ResponseWriter, r *http.Request) {
	place := strings.TrimSpace(r.URL.Query().Get("place"))

	loc, err := h.geocoder.ResolvePlace(r.Context(), place)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	cond, err := h.forecaster.FetchConditions(r.Context(), loc.Latitude, loc.Longitude)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.Weather{
		Place:      models.NewPlace(loc),
		Conditions: models.NewConditions(cond),
	})
}

func (h *LookupHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Debug().Err(err).Str("kind", string(lookup.Classify(err))).Msg("lookup failed")
	response.LookupError(w, r, err)
}
