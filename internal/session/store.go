// Package session keeps one lookup controller per browser session.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/lookup"
)

// CookieName is the cookie carrying the session ID.
const CookieName = "tenkimap_session"

// Factory builds the controller for a new session.
type Factory func() *lookup.Controller

// StoreConfig holds configuration for the session store.
type StoreConfig struct {
	// NewController is required.
	NewController Factory

	// TTL is how long an idle session is kept (default: 30 minutes).
	TTL time.Duration

	// CleanupInterval is how often Run sweeps expired sessions (default: 1 minute).
	CleanupInterval time.Duration

	Logger zerolog.Logger
}

// Store is an in-memory session store. Sessions expire after TTL without use.
type Store struct {
	newController   Factory
	ttl             time.Duration
	cleanupInterval time.Duration
	logger          zerolog.Logger
	now             func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	controller *lookup.Controller
	lastSeen   time.Time
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Minute
	}

	interval := cfg.CleanupInterval
	if interval == 0 {
		interval = time.Minute
	}

	return &Store{
		newController:   cfg.NewController,
		ttl:             ttl,
		cleanupInterval: interval,
		logger:          cfg.Logger,
		now:             time.Now,
		sessions:        make(map[string]*entry),
	}
}

// Get returns the controller for id and refreshes its expiry.
func (s *Store) Get(id string) (*lookup.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}

	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		delete(s.sessions, id)
		return nil, false
	}
	e.lastSeen = now
	return e.controller, true
}

// GetOrCreate returns the controller for id, creating a new session under a
// fresh ID when id is unknown or expired.
func (s *Store) GetOrCreate(id string) (string, *lookup.Controller, bool) {
	if id != "" {
		if c, ok := s.Get(id); ok {
			return id, c, false
		}
	}

	newID := uuid.NewString()
	c := s.newController()

	s.mu.Lock()
	s.sessions[newID] = &entry{controller: c, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug().Str("session_id", newID).Msg("session created")
	return newID, c, true
}

// Len returns the number of stored sessions, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Cleanup removes expired sessions and returns how many were removed.
func (s *Store) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	expired := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.sessions, id)
			expired++
		}
	}

	if expired > 0 {
		s.logger.Debug().
			Int("expired_sessions", expired).
			Int("remaining", len(s.sessions)).
			Msg("cleaned up expired sessions")
	}
	return expired
}

// Run sweeps expired sessions until ctx is done.
func (s *Store) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cleanup()
		}
	}
}

// FromRequest returns the controller for the request's session cookie,
// creating a session and setting the cookie when needed.
func (s *Store) FromRequest(w http.ResponseWriter, r *http.Request) *lookup.Controller {
	var current string
	if cookie, err := r.Cookie(CookieName); err == nil {
		current = cookie.Value
	}

	id, c, created := s.GetOrCreate(current)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     CookieName,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			Secure:   r.TLS != nil,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return c
}

// SetClock replaces the store's time source. For tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
