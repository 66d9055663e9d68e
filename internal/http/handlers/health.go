package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/wolfman30/hairloss-doctor/pkg/logging"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler reports service liveness plus the state of optional
// dependencies such as Redis and Postgres.
type HealthHandler struct {
	checks  map[string]HealthCheck
	timeout time.Duration
	logger  *logging.Logger
}

// NewHealthHandler creates a handler with no dependency checks.
func NewHealthHandler(logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{checks: map[string]HealthCheck{}, timeout: 2 * time.Second, logger: logger}
}

// Register adds a named dependency check.
func (h *HealthHandler) Register(name string, check HealthCheck) {
	if check != nil {
		h.checks[name] = check
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	if len(names) > 0 {
		resp.Checks = make(map[string]string, len(names))
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := h.checks[name](ctx)
		cancel()
		if err != nil {
			h.logger.Warn("health check failed", "check", name, "error", err)
			resp.Checks[name] = "error"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	writeJSON(w, status, resp)
}
