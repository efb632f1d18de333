package weather

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tenkimap/tenkimap/internal/telemetry"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
)

const tracerName = "github.com/tenkimap/tenkimap/internal/weather"

// Provider defines the interface for weather data providers.
type Provider interface {
	// GetCurrentConditions fetches current conditions for a point.
	GetCurrentConditions(ctx context.Context, lat, lon float64) (*CurrentConditions, error)

	// Name returns the provider name for logging.
	Name() string
}

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger

	// Metrics and Registry are optional.
	Metrics  *telemetry.UpstreamMetrics
	Registry *resilience.Registry
}

// Service fetches current conditions. Every call goes to the provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.UpstreamMetrics
	registry *resilience.Registry
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		registry: cfg.Registry,
	}
}

// FetchConditions returns current conditions at lat, lon.
// Coordinates are passed to the provider as given.
func (s *Service) FetchConditions(ctx context.Context, lat, lon float64) (*CurrentConditions, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "weather.FetchConditions")
	defer span.End()
	span.SetAttributes(
		attribute.String("weather.provider", s.provider.Name()),
		attribute.Float64("weather.lat", lat),
		attribute.Float64("weather.lon", lon),
	)

	s.logger.Debug().
		Float64("lat", lat).
		Float64("lon", lon).
		Str("provider", s.provider.Name()).
		Msg("fetching conditions from provider")

	start := time.Now()
	cond, err := s.provider.GetCurrentConditions(ctx, lat, lon)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, ErrUnavailable) {
			outcome = "unavailable"
		}
	}
	s.metrics.Record(ctx, s.provider.Name(), outcome, elapsed)
	if s.registry != nil {
		s.registry.Record(s.provider.Name(), err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.logger.Error().Err(err).
			Float64("lat", lat).
			Float64("lon", lon).
			Dur("elapsed", elapsed).
			Msg("failed to fetch conditions")
		return nil, err
	}

	if cond.WeatherCode != nil {
		span.SetAttributes(attribute.Int("weather.code", *cond.WeatherCode))
	}
	return cond, nil
}
