package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	apperrors "github.com/3leaps/docshed/internal/errors"
)

// Checker probes one dependency for the health endpoints.
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) CheckHealth(ctx context.Context) error {
	return f(ctx)
}

// HealthResponse is the healthy-path body for /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthManager aggregates registered dependency checkers.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewHealthManager creates a manager reporting the given service version.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{
		version:  version,
		checkers: make(map[string]Checker),
	}
}

// RegisterChecker adds a named dependency probe.
func (m *HealthManager) RegisterChecker(name string, c Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = c
}

// HealthHandler reports aggregate health: 200 with per-check status when all
// pass, 503 with the error envelope when any fail.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks, healthy := m.runChecks(r.Context())

	if !healthy {
		details := map[string]any{"checks": checks}
		apperrors.RespondWithErrorDetails(w, http.StatusServiceUnavailable,
			apperrors.CodeServiceUnavailable, "one or more health checks failed", "", details)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:  "healthy",
		Version: m.version,
		Checks:  checks,
	})
}

// LiveHandler reports process liveness only.
func (m *HealthManager) LiveHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
}

// ReadyHandler mirrors HealthHandler; readiness and health share checkers.
func (m *HealthManager) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

func (m *HealthManager) runChecks(ctx context.Context) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	healthy := true
	checks := make(map[string]string, len(m.checkers))
	for name, c := range m.checkers {
		if err := c.CheckHealth(ctx); err != nil {
			checks[name] = "unhealthy"
			healthy = false
			continue
		}
		checks[name] = "healthy"
	}
	return checks, healthy
}
