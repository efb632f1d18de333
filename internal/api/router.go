// Package api provides the HTTP surface of tenkimap: the widget page and the
// JSON API.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/api/handler"
	"github.com/tenkimap/tenkimap/internal/api/middleware"
	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/auth"
	"github.com/tenkimap/tenkimap/internal/featureflags"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/session"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
	"github.com/tenkimap/tenkimap/internal/view"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	ServiceName string
	Logger      zerolog.Logger
	Metrics     *middleware.Metrics

	// RequireTLS rejects plain-HTTP requests that were not forwarded as HTTPS.
	RequireTLS bool

	// TileURL is the map tile template. Empty means view.DefaultTileURL.
	TileURL string

	Geocoder   lookup.Geocoder
	Forecaster lookup.Forecaster
	Sessions   *session.Store
	Renderer   *view.Renderer

	FeatureFlagService *featureflags.Service
	JWTService         *auth.JWTService
	Registry           *resilience.Registry

	// Database is pinged by the readiness check when set.
	Database handler.Pinger
}

// NewRouter creates a new chi router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tenkimap"
	}
	tileURL := cfg.TileURL
	if tileURL == "" {
		tileURL = view.DefaultTileURL
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing(serviceName))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware())
	}
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.RequireTLS(cfg.RequireTLS))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, r, "no route matches "+r.URL.Path)
	})

	flags := cfg.FeatureFlagService
	if flags == nil {
		flags = featureflags.NewService(featureflags.ServiceConfig{
			Repository: featureflags.NewInMemoryRepository(),
			Logger:     cfg.Logger,
		})
	}
	jwtService := cfg.JWTService
	if jwtService == nil {
		// No signing key: every admin request is rejected.
		jwtService = auth.NewJWTService(auth.JWTConfig{})
	}

	var sessions interface{ Len() int }
	if cfg.Sessions != nil {
		sessions = cfg.Sessions
	}

	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:  cfg.Version,
		Registry: cfg.Registry,
		Database: cfg.Database,
		Sessions: sessions,
	})
	lookupHandler := handler.NewLookupHandler(cfg.Geocoder, cfg.Forecaster)
	sessionHandler := handler.NewSessionHandler(cfg.Sessions)
	pageHandler := handler.NewPageHandler(handler.PageConfig{
		Store:    cfg.Sessions,
		Renderer: cfg.Renderer,
		TileURL:  tileURL,
		Zoom:     flags.MapZoom,
	})
	featureFlagsHandler := handler.NewFeatureFlagsHandler(flags, cfg.Logger)

	lookupRateLimit := middleware.RateLimitByIP(middleware.LookupRateLimit)     // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	// Widget page
	r.Group(func(r chi.Router) {
		r.Use(middleware.PageSecurity(tileURL))
		r.With(standardRateLimit).Get("/", pageHandler.Index)
		r.With(lookupRateLimit).Post("/search", pageHandler.Search)
		r.With(lookupRateLimit).Post("/click", pageHandler.Click)
		r.Handle("/static/*", http.StripPrefix("/static/", view.Static()))
	})

	// API v1 routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)

		// Stateless lookups
		r.Group(func(r chi.Router) {
			r.Use(lookupRateLimit)
			r.Get("/places", lookupHandler.ResolvePlace)
			r.Get("/conditions", lookupHandler.CurrentConditions)
			r.Get("/weather", lookupHandler.Weather)
		})

		// Widget session, keyed by cookie
		r.Route("/session", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", sessionHandler.GetState)
			r.Group(func(r chi.Router) {
				r.Use(lookupRateLimit)
				r.Use(middleware.RequireJSON)
				r.Post("/search", sessionHandler.Search)
				r.Post("/click", sessionHandler.Click)
			})
		})

		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Use(standardRateLimit)
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.Get("/status", opsHandler.SystemStatus)
		})

		// Admin endpoints (admin token)
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(jwtService))
			r.Use(middleware.RateLimitByAdmin(middleware.AdminRateLimit))

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.With(middleware.RequireJSON).Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
			})
		})
	})

	return r
}
