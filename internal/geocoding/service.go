package geocoding

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/tenkimap/tenkimap/internal/telemetry"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
)

const tracerName = "github.com/tenkimap/tenkimap/internal/geocoding"

// Provider is a geocoding backend.
type Provider interface {
	// Search returns the first candidate for a non-empty, trimmed name.
	Search(ctx context.Context, name string) (*Location, error)

	// Name returns the provider name for logging and health tracking.
	Name() string
}

// ServiceConfig holds configuration for the geocoding service.
type ServiceConfig struct {
	Provider Provider
	Logger   zerolog.Logger

	// Metrics and Registry are optional.
	Metrics  *telemetry.UpstreamMetrics
	Registry *resilience.Registry
}

// Service validates queries and instruments calls to the provider.
type Service struct {
	provider Provider
	logger   zerolog.Logger
	metrics  *telemetry.UpstreamMetrics
	registry *resilience.Registry
}

// NewService creates a geocoding service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		registry: cfg.Registry,
	}
}

// ResolvePlace resolves name to the upstream's first candidate.
// Surrounding whitespace is ignored; a blank name is rejected with
// ErrEmptyPlaceName.
func (s *Service) ResolvePlace(ctx context.Context, name string) (*Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyPlaceName
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "geocoding.ResolvePlace")
	defer span.End()
	span.SetAttributes(
		attribute.String("geocoding.provider", s.provider.Name()),
		attribute.String("geocoding.query", name),
	)

	start := time.Now()
	loc, err := s.provider.Search(ctx, name)
	elapsed := time.Since(start)

	outcome := outcomeOf(err)
	s.metrics.Record(ctx, s.provider.Name(), outcome, elapsed)

	if err != nil {
		span.RecordError(err)
		if errors.Is(err, ErrPlaceNotFound) {
			s.recordHealth(nil)
			s.logger.Debug().Str("query", name).Msg("place not found")
			return nil, err
		}
		span.SetStatus(codes.Error, outcome)
		s.recordHealth(err)
		s.logger.Error().Err(err).
			Str("query", name).
			Str("provider", s.provider.Name()).
			Dur("elapsed", elapsed).
			Msg("geocoding failed")
		return nil, err
	}

	s.recordHealth(nil)
	s.logger.Debug().
		Str("query", name).
		Str("resolved", loc.DisplayName).
		Float64("lat", loc.Latitude).
		Float64("lon", loc.Longitude).
		Msg("place resolved")

	return loc, nil
}

func (s *Service) recordHealth(err error) {
	if s.registry != nil {
		s.registry.Record(s.provider.Name(), err)
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPlaceNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
