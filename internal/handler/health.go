package handler

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	started time.Time
	checks  map[string]Pinger
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// NewHealthHandler creates a health handler whose readiness depends on the chat store.
func NewHealthHandler(store Pinger) *HealthHandler {
	h := &HealthHandler{started: time.Now(), checks: map[string]Pinger{}}
	return h.WithCheck("store", store)
}

// WithCheck adds a named dependency to the readiness probe.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status: "healthy",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ready", Checks: make(map[string]string, len(names))}
	status := http.StatusOK
	for _, name := range names {
		p := h.checks[name]
		if p == nil {
			resp.Checks[name] = "not configured"
			status = http.StatusServiceUnavailable
			continue
		}
		if err := p.Ping(ctx); err != nil {
			resp.Checks[name] = "unreachable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	if status != http.StatusOK {
		resp.Status = "not ready"
	}

	writeJSON(w, status, resp)
}
