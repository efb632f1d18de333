// Package handler implements the HTTP handlers of the tenkimap server.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tenkimap/tenkimap/internal/api/models"
	"github.com/tenkimap/tenkimap/internal/api/response"
	"github.com/tenkimap/tenkimap/internal/upstream/resilience"
)

// Pinger checks a backing store. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsConfig configures an OpsHandler. Database and Sessions are optional.
type OpsConfig struct {
	Version  string
	Registry *resilience.Registry
	Database Pinger
	Sessions interface{ Len() int }

	// PingTimeout bounds the readiness database check. Default: 2 seconds.
	PingTimeout time.Duration
}

// OpsHandler serves liveness, readiness and status.
type OpsHandler struct {
	version     string
	registry    *resilience.Registry
	db          Pinger
	sessions    interface{ Len() int }
	pingTimeout time.Duration
}

// NewOpsHandler creates an OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	timeout := cfg.PingTimeout
	if timeout == 0 {
		timeout = 2 * time.Second
	}
	return &OpsHandler{
		version:     cfg.Version,
		registry:    cfg.Registry,
		db:          cfg.Database,
		sessions:    cfg.Sessions,
		pingTimeout: timeout,
	}
}

// HealthCheck handles GET /v1/ops/health. It always answers OK while the
// process serves requests.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It fails with 503 when the
// flag database is configured and does not answer a ping. Upstream circuit
// state does not affect readiness.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Version: h.version,
		Checks:  map[string]string{},
	}

	status := http.StatusOK
	if h.db != nil {
		if err := h.ping(r.Context()); err != nil {
			health.Status = models.HealthStatusFail
			health.Checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			health.Checks["database"] = "ok"
		}
	}

	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	out := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Upstreams:  []models.UpstreamStatus{},
	}

	if h.db != nil {
		sub := models.SubsystemStatus{Name: "database", Status: models.HealthStatusOK}
		if err := h.ping(r.Context()); err != nil {
			sub.Status = models.HealthStatusDegraded
			sub.Detail = err.Error()
		}
		out.Subsystems = append(out.Subsystems, sub)
	}

	if h.registry != nil {
		for _, u := range h.registry.All() {
			out.Upstreams = append(out.Upstreams, upstreamStatus(u))
		}
	}

	if h.sessions != nil {
		out.Sessions = h.sessions.Len()
	}

	for _, s := range out.Subsystems {
		out.Status = worse(out.Status, s.Status)
	}
	for _, u := range out.Upstreams {
		out.Status = worse(out.Status, u.Status)
	}

	response.JSON(w, r, http.StatusOK, out)
}

func (h *OpsHandler) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.pingTimeout)
	defer cancel()
	return h.db.Ping(ctx)
}

func upstreamStatus(u *resilience.UpstreamHealth) models.UpstreamStatus {
	status := models.HealthStatusOK
	switch {
	case u.IsUnhealthy():
		status = models.HealthStatusFail
	case u.IsDegraded():
		status = models.HealthStatusDegraded
	}

	return models.UpstreamStatus{
		Name:          u.Name,
		Status:        status,
		CircuitState:  circuitStateName(u.CircuitState),
		Requests:      u.Counts.Requests,
		Failures:      u.Counts.ConsecutiveFailures,
		LastSuccessAt: models.NewTimestamp(u.LastSuccessAt),
		LastFailureAt: models.NewTimestamp(u.LastFailureAt),
		LastError:     u.LastError,
	}
}

func circuitStateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "CLOSED"
	case gobreaker.StateHalfOpen:
		return "HALF_OPEN"
	case gobreaker.StateOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// worse returns the more severe of two statuses. A failed upstream only
// degrades the service as a whole.
func worse(a, b models.HealthStatus) models.HealthStatus {
	if a == models.HealthStatusDegraded || b == models.HealthStatusDegraded || b == models.HealthStatusFail {
		return models.HealthStatusDegraded
	}
	return a
}
