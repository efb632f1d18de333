package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/featureflags"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/session"
	"github.com/tenkimap/tenkimap/internal/view"
)

// PageConfig configures a PageHandler.
type PageConfig struct {
	Store    *session.Store
	Renderer *view.Renderer

	// TileURL is the XYZ tile template. Empty means view.DefaultTileURL.
	TileURL string

	// Zoom returns the initial map zoom. Nil means featureflags.DefaultMapZoom.
	Zoom func(ctx context.Context) int
}

// PageHandler serves the server-rendered widget. Form posts redirect back
// to / so a reload does not repeat the lookup.
type PageHandler struct {
	store    *session.Store
	renderer *view.Renderer
	tileURL  string
	zoom     func(ctx context.Context) int
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(cfg PageConfig) *PageHandler {
	zoom := cfg.Zoom
	if zoom == nil {
		zoom = func(context.Context) int { return featureflags.DefaultMapZoom }
	}
	return &PageHandler{
		store:    cfg.Store,
		renderer: cfg.Renderer,
		tileURL:  cfg.TileURL,
		zoom:     zoom,
	}
}

// Index handles GET /.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	c := h.store.FromRequest(w, r)
	state, err := c.Mount(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Msg("initial lookup did not succeed")
	}

	page := view.NewPage(state, r.URL.Query().Get("q"), view.Map{
		TileURL: h.tileURL,
		Zoom:    h.zoom(ctx),
	})

	var buf bytes.Buffer
	if err := h.renderer.Render(&buf, page); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to render page")
		response.InternalError(w, r, "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Search handles POST /search.
func (h *PageHandler) Search(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, r, "invalid form body", nil)
		return
	}
	place := r.PostForm.Get("place")

	c := h.store.FromRequest(w, r)
	if _, err := c.SubmitPlace(r.Context(), place); err != nil && !errors.Is(err, geocoding.ErrEmptyPlaceName) {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("search did not succeed")
	}

	target := "/"
	if strings.TrimSpace(place) != "" {
		target = "/?q=" + url.QueryEscape(place)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Click handles POST /click.
func (h *PageHandler) Click(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		response.BadRequest(w, r, "invalid form body", nil)
		return
	}

	lat, lon, fieldErrs := parseCoordinate(r.PostForm.Get("lat"), r.PostForm.Get("lon"))
	if len(fieldErrs) > 0 {
		response.BadRequest(w, r, "invalid coordinate", fieldErrs)
		return
	}

	c := h.store.FromRequest(w, r)
	if _, err := c.ClickMap(r.Context(), lat, lon); err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("map click lookup did not succeed")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
