// Package main provides the entrypoint for the tenkimap server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"github.com/tenkimap/tenkimap/internal/api"
	"github.com/tenkimap/tenkimap/internal/api/handler"
	"github.com/tenkimap/tenkimap/internal/api/middleware"
	"github.com/tenkimap/tenkimap/internal/auth"
	"github.com/tenkimap/tenkimap/internal/config"
	"github.com/tenkimap/tenkimap/internal/database"
	"github.com/tenkimap/tenkimap/internal/featureflags"
	"github.com/tenkimap/tenkimap/internal/geocoding"
	geoopenmeteo "github.com/tenkimap/tenkimap/internal/geocoding/openmeteo"
	"github.com/tenkimap/tenkimap/internal/lookup"
	"github.com/tenkimap/tenkimap/internal/session"
	"github.com/tenkimap/tenkimap/internal/telemetry"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
	"github.com/tenkimap/tenkimap/internal/view"
	"github.com/tenkimap/tenkimap/internal/weather"
	wxopenmeteo "github.com/tenkimap/tenkimap/internal/weather/openmeteo"
)

// BuildTime is set at compile time via ldflags.
var BuildTime = "unknown"

func main() {
	const serviceName = "tenkimap"

	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", cfg.Version).
		Logger()
	if cfg.IsProduction() {
		log = log.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("env", cfg.Env).
		Msg("starting tenkimap")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Env,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
		SampleRatio:    cfg.OTELSampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if tp.Enabled() {
		log.Info().
			Str("otlp_endpoint", cfg.OTLPEndpoint).
			Float64("sample_ratio", cfg.OTELSampleRatio).
			Msg("OpenTelemetry initialized")
	}

	httpMetrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize HTTP metrics")
	}
	upstreamMetrics, err := telemetry.NewUpstreamMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize upstream metrics")
	}

	// Upstream clients
	registry := resilience.NewRegistry()
	geoHTTP := newUpstreamClient(cfg, geoopenmeteo.ProviderName, log)
	wxHTTP := newUpstreamClient(cfg, wxopenmeteo.ProviderName, log)
	registry.Register(geoHTTP)
	registry.Register(wxHTTP)

	geocoder := geocoding.NewService(geocoding.ServiceConfig{
		Provider: geoopenmeteo.NewClient(geoopenmeteo.ClientConfig{
			BaseURL:    cfg.GeocodingBaseURL,
			Language:   cfg.GeocodingLanguage,
			HTTPClient: geoHTTP,
		}),
		Logger:   log.With().Str("component", "geocoding").Logger(),
		Metrics:  upstreamMetrics,
		Registry: registry,
	})
	forecaster := weather.NewService(weather.ServiceConfig{
		Provider: wxopenmeteo.NewClient(wxopenmeteo.ClientConfig{
			BaseURL:    cfg.ForecastBaseURL,
			Timezone:   cfg.ForecastTimezone,
			HTTPClient: wxHTTP,
			Logger:     log,
		}),
		Logger:   log.With().Str("component", "weather").Logger(),
		Metrics:  upstreamMetrics,
		Registry: registry,
	})
	log.Info().
		Str("geocoding", cfg.GeocodingBaseURL).
		Str("forecast", cfg.ForecastBaseURL).
		Dur("timeout", cfg.UpstreamTimeout).
		Int("max_retries", cfg.UpstreamMaxRetries).
		Int("breaker_threshold", cfg.UpstreamBreakerThreshold).
		Msg("upstream clients initialized")

	// Feature flags, backed by Postgres when a database is configured
	defaultFlags := featureflags.DefaultFlagsFor(cfg.DefaultPlace, cfg.MapZoom)
	var (
		pool     *pgxpool.Pool
		flagRepo featureflags.Repository
	)
	if cfg.Database.Enabled() {
		pool, err = database.Connect(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		log.Info().
			Str("host", cfg.Database.Host).
			Int("port", cfg.Database.Port).
			Str("database", cfg.Database.Database).
			Msg("database connected")

		pgRepo := featureflags.NewPostgresRepository(pool)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to prepare feature flag schema")
		}
		flagRepo = pgRepo
	} else {
		log.Info().Msg("no database configured, feature flags kept in memory")
		flagRepo = featureflags.NewInMemoryRepositoryWithFlags(defaultFlags)
	}

	ffService := featureflags.NewService(featureflags.ServiceConfig{
		Repository:   flagRepo,
		Logger:       log.With().Str("component", "featureflags").Logger(),
		CacheTTL:     1 * time.Minute,
		DefaultFlags: defaultFlags,
	})

	// Widget sessions
	sessions := session.NewStore(session.StoreConfig{
		NewController: func() *lookup.Controller {
			return lookup.NewController(lookup.Config{
				Geocoder:     geocoder,
				Forecaster:   forecaster,
				DefaultPlace: ffService.DefaultPlace(ctx),
				DiscardStale: ffService.DiscardStaleLookups,
				Logger:       log.With().Str("component", "lookup").Logger(),
			})
		},
		TTL:    cfg.SessionTTL,
		Logger: log.With().Str("component", "session").Logger(),
	})
	go sessions.Run(ctx)

	renderer, err := view.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to parse page templates")
	}

	if cfg.AdminJWTSigningKey == "" {
		log.Warn().Msg("ADMIN_JWT_SIGNING_KEY not set, admin endpoints will reject every request")
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{SigningKey: cfg.AdminJWTSigningKey})

	var db handler.Pinger
	if pool != nil {
		db = pool
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            cfg.Version,
		ServiceName:        serviceName,
		Logger:             log,
		Metrics:            httpMetrics,
		RequireTLS:         cfg.RequireTLS,
		TileURL:            cfg.MapTileURL,
		Geocoder:           geocoder,
		Forecaster:         forecaster,
		Sessions:           sessions,
		Renderer:           renderer,
		FeatureFlagService: ffService,
		JWTService:         jwtService,
		Registry:           registry,
		Database:           db,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error().Err(err).Msg("server error")
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// newUpstreamClient builds the breaker-wrapped HTTP client for one upstream
// and logs its breaker transitions.
func newUpstreamClient(cfg config.Config, name string, log zerolog.Logger) *resilience.Client {
	clientCfg := resilience.DefaultClientConfig(name)
	clientCfg.Timeout = cfg.UpstreamTimeout
	clientCfg.MaxRetries = uint64(cfg.UpstreamMaxRetries)
	clientCfg.Breaker.ReadyToTrip = resilience.TripAfter(uint32(cfg.UpstreamBreakerThreshold))
	clientCfg.Breaker.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn().
			Str("upstream", name).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("circuit breaker state changed")
	}
	return resilience.NewClient(clientCfg)
}
