// Package lookup drives place and map-click lookups through geocoding and
// weather, and owns the resulting widget state.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tenkimap/tenkimap/internal/geocoding"
	"github.com/tenkimap/tenkimap/internal/weather"
)

// ErrSuperseded is returned when a newer lookup was dispatched before this
// one resolved and its result was discarded.
var ErrSuperseded = errors.New("lookup superseded by a newer one")

// Geocoder resolves place names.
type Geocoder interface {
	ResolvePlace(ctx context.Context, name string) (*geocoding.Location, error)
}

// Forecaster fetches current conditions.
type Forecaster interface {
	FetchConditions(ctx context.Context, lat, lon float64) (*weather.CurrentConditions, error)
}

// Status is the controller's position in Idle -> Loading -> Success|Failure.
type Status string

const (
	StatusIdle    Status = "IDLE"
	StatusLoading Status = "LOADING"
	StatusSuccess Status = "SUCCESS"
	StatusFailure Status = "FAILURE"
)

// Coordinate is a map position.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// TokyoCenter is the map center before any lookup resolves.
var TokyoCenter = Coordinate{Latitude: 35.6895, Longitude: 139.6917}

// State is a snapshot of the widget.
type State struct {
	Status     Status
	Label      string
	Conditions *weather.CurrentConditions
	Loading    bool
	Error      string
	ErrorKind  ErrorKind
	Center     Coordinate

	// Seq is the sequence number of the lookup that last changed the state.
	Seq       uint64
	UpdatedAt time.Time
}

// Config configures a Controller.
type Config struct {
	Geocoder   Geocoder
	Forecaster Forecaster

	// DefaultPlace is looked up by Mount.
	DefaultPlace string

	// Center is the initial map center. Zero means TokyoCenter.
	Center Coordinate

	// DiscardStale reports whether results of superseded lookups are
	// dropped. Nil means always. When it returns false the last result to
	// arrive wins.
	DiscardStale func(ctx context.Context) bool

	Logger zerolog.Logger
}

// Controller runs lookups for one visitor and holds their state.
// It is safe for concurrent use; overlapping lookups are ordered by
// dispatch sequence.
type Controller struct {
	geocoder     Geocoder
	forecaster   Forecaster
	defaultPlace string
	discardStale func(ctx context.Context) bool
	logger       zerolog.Logger

	mu      sync.Mutex
	state   State
	latest  uint64
	mounted bool
}

// NewController creates a controller in the Idle state.
func NewController(cfg Config) *Controller {
	center := cfg.Center
	if center == (Coordinate{}) {
		center = TokyoCenter
	}

	discardStale := cfg.DiscardStale
	if discardStale == nil {
		discardStale = func(context.Context) bool { return true }
	}

	return &Controller{
		geocoder:     cfg.Geocoder,
		forecaster:   cfg.Forecaster,
		defaultPlace: cfg.DefaultPlace,
		discardStale: discardStale,
		logger:       cfg.Logger,
		state: State{
			Status: StatusIdle,
			Center: center,
		},
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Mount looks up the default place the first time it is called. Later calls
// return the current state without dispatching.
func (c *Controller) Mount(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.mounted {
		s := c.state
		c.mu.Unlock()
		return s, nil
	}
	c.mounted = true
	c.mu.Unlock()

	return c.SubmitPlace(ctx, c.defaultPlace)
}

// SubmitPlace geocodes text and fetches conditions at the result.
// On success the map is recentred on the place. Blank text is rejected with
// geocoding.ErrEmptyPlaceName and leaves the state untouched.
func (c *Controller) SubmitPlace(ctx context.Context, text string) (State, error) {
	name := strings.TrimSpace(text)
	if name == "" {
		return c.State(), geocoding.ErrEmptyPlaceName
	}

	c.markMounted()
	seq := c.dispatch()

	loc, err := c.geocoder.ResolvePlace(ctx, name)
	if err != nil {
		return c.fail(ctx, seq, err)
	}

	cond, err := c.forecaster.FetchConditions(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return c.fail(ctx, seq, err)
	}

	center := Coordinate{Latitude: loc.Latitude, Longitude: loc.Longitude}
	return c.succeed(ctx, seq, loc.DisplayName, cond, &center)
}

// ClickMap fetches conditions at a clicked point without geocoding.
// The label becomes the formatted coordinates and the map is not recentred.
func (c *Controller) ClickMap(ctx context.Context, lat, lon float64) (State, error) {
	c.markMounted()
	seq := c.dispatch()

	cond, err := c.forecaster.FetchConditions(ctx, lat, lon)
	if err != nil {
		return c.fail(ctx, seq, err)
	}

	return c.succeed(ctx, seq, CoordinateLabel(lat, lon), cond, nil)
}

// CoordinateLabel formats a clicked point for display.
func CoordinateLabel(lat, lon float64) string {
	return fmt.Sprintf("緯度: %.4f, 経度: %.4f", lat, lon)
}

func (c *Controller) markMounted() {
	c.mu.Lock()
	c.mounted = true
	c.mu.Unlock()
}

func (c *Controller) dispatch() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest++
	c.state.Loading = true
	c.state.Status = StatusLoading
	return c.latest
}

func (c *Controller) succeed(ctx context.Context, seq uint64, label string, cond *weather.CurrentConditions, center *Coordinate) (State, error) {
	return c.resolve(ctx, seq, nil, func(s *State) {
		s.Status = StatusSuccess
		s.Label = label
		s.Conditions = cond
		s.Error = ""
		s.ErrorKind = KindNone
		if center != nil {
			s.Center = *center
		}
	})
}

func (c *Controller) fail(ctx context.Context, seq uint64, err error) (State, error) {
	kind := Classify(err)
	return c.resolve(ctx, seq, err, func(s *State) {
		s.Status = StatusFailure
		s.Conditions = nil
		s.Error = Message(kind)
		s.ErrorKind = kind
	})
}

func (c *Controller) resolve(ctx context.Context, seq uint64, lookupErr error, apply func(*State)) (State, error) {
	discard := c.discardStale(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if seq != c.latest && discard {
		c.logger.Debug().
			Uint64("seq", seq).
			Uint64("latest", c.latest).
			AnErr("lookup_error", lookupErr).
			Msg("discarding superseded lookup")
		return c.state, ErrSuperseded
	}

	apply(&c.state)
	c.state.Loading = false
	c.state.Seq = seq
	c.state.UpdatedAt = time.Now()

	return c.state, lookupErr
}
