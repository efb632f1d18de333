package featureflags

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger

	// CacheTTL is how long a snapshot of the repository is served before it
	// is read again. Default: 1 minute.
	CacheTTL time.Duration

	// DefaultFlags fill in keys the repository does not have. They also
	// define which keys are known. Default: DefaultFlags().
	DefaultFlags map[string]*Flag
}

// Service reads flags through a cached snapshot of the repository merged
// over the defaults. When the repository fails, the last snapshot (or the
// defaults) keeps being served for another TTL.
type Service struct {
	repo         Repository
	logger       zerolog.Logger
	cacheTTL     time.Duration
	defaultFlags map[string]*Flag

	mu       sync.RWMutex
	snapshot map[string]*Flag
	expiry   time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 1 * time.Minute
	}

	defaultFlags := cfg.DefaultFlags
	if defaultFlags == nil {
		defaultFlags = DefaultFlags()
	}

	return &Service{
		repo:         cfg.Repository,
		logger:       cfg.Logger,
		cacheTTL:     cacheTTL,
		defaultFlags: defaultFlags,
	}
}

// GetFlag returns the flag for key, or nil when neither the repository nor
// the defaults have it.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	return s.current(ctx)[key]
}

// GetAllFlags returns every flag, repository values over defaults.
// The map is the caller's to modify; the flags are not.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	return maps.Clone(s.current(ctx))
}

// SetFlag updates a single flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags writes flags in one repository call and applies them to the
// cached snapshot.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}

	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot != nil {
		next := maps.Clone(s.snapshot)
		for _, flag := range flags {
			next[flag.Key] = flag
		}
		s.snapshot = next
	}
	return nil
}

// InvalidateCache drops the snapshot so the next read goes to the repository.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = nil
	s.expiry = time.Time{}
}

// current returns the live snapshot, reloading it when it has expired.
// Snapshots are never mutated once published.
func (s *Service) current(ctx context.Context) map[string]*Flag {
	now := time.Now()

	s.mu.RLock()
	snap, fresh := s.snapshot, now.Before(s.expiry)
	s.mu.RUnlock()
	if snap != nil && fresh {
		return snap
	}

	stored, err := s.repo.GetAllFlags(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read feature flags, serving last known values")
		if s.snapshot == nil {
			s.snapshot = s.defaultFlags
		}
		s.expiry = now.Add(s.cacheTTL)
		return s.snapshot
	}

	next := maps.Clone(s.defaultFlags)
	maps.Copy(next, stored)
	s.snapshot = next
	s.expiry = now.Add(s.cacheTTL)
	return next
}

// Known reports whether key is one of the application's flags.
func (s *Service) Known(key string) bool {
	_, ok := s.defaultFlags[key]
	return ok
}

// Convenience methods for well-known flags.

// DiscardStaleLookups reports whether superseded lookup responses are dropped.
func (s *Service) DiscardStaleLookups(ctx context.Context) bool {
	return s.GetFlag(ctx, FlagDiscardStaleLookups).BoolValue(true)
}

// DefaultPlace returns the place looked up when a session starts.
func (s *Service) DefaultPlace(ctx context.Context) string {
	return s.GetFlag(ctx, FlagDefaultPlace).StringValue(DefaultPlace)
}

// MapZoom returns the zoom level of the widget map.
func (s *Service) MapZoom(ctx context.Context) int {
	return s.GetFlag(ctx, FlagMapZoom).IntValue(DefaultMapZoom)
}
