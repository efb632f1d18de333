package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/session"
)

const maxSessionBody = 4 << 10

// SessionHandler exposes a visitor's widget state as JSON. Lookup failures
// are part of the state, so they answer 200 with the error filled in.
type SessionHandler struct {
	store *session.Store
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(store *session.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// GetState handles GET /v1/session. The first request of a session runs
// the default-place lookup.
func (h *SessionHandler) GetState(w http.ResponseWriter, r *http.Request) {
	c := h.store.FromRequest(w, r)
	_, err := c.Mount(r.Context())
	h.respond(w, r, c, err)
}

// Search handles POST /v1/session/search.
func (h *SessionHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBody)).Decode(&req); err != nil {
		response.BadRequest(w, r, "request body must be JSON", nil)
		return
	}

	c := h.store.FromRequest(w, r)
	_, err := c.SubmitPlace(r.Context(), req.Place)
	if errors.Is(err, geocoding.ErrEmptyPlaceName) {
		response.LookupError(w, r, err)
		return
	}
	h.respond(w, r, c, err)
}

// Click handles POST /v1/session/click.
func (h *SessionHandler) Click(w http.ResponseWriter, r *http.Request) {
	var req models.ClickRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSessionBody)).Decode(&req); err != nil {
		response.BadRequest(w, r, "request body must be JSON", nil)
		return
	}
	if req.Lat == nil || req.Lon == nil {
		response.BadRequest(w, r, "lat and lon are required", []models.FieldError{
			{Field: "lat", Message: "is required", Code: models.CodeRequired},
			{Field: "lon", Message: "is required", Code: models.CodeRequired},
		})
		return
	}
	if *req.Lat < -90 || *req.Lat > 90 {
		response.BadRequest(w, r, "invalid coordinate", []models.FieldError{
			{Field: "lat", Message: "must be between -90 and 90", Code: models.CodeOutOfRange},
		})
		return
	}

	c := h.store.FromRequest(w, r)
	_, err := c.ClickMap(r.Context(), *req.Lat, *req.Lon)
	h.respond(w, r, c, err)
}

// respond writes the controller's current state. A superseded lookup
// reports the state left by the newer one.
func (h *SessionHandler) respond(w http.ResponseWriter, r *http.Request, c *lookup.Controller, err error) {
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("session lookup did not succeed")
	}
	response.JSON(w, r, http.StatusOK, models.NewSessionState(c.State()))
}
