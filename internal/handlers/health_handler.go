package handlers

import (
	"context"
	"net/http"
	"time"

	"heritagequest/internal/logger"
)

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	checks map[string]HealthCheck
	log    *logger.Logger
}

// NewHealthHandler creates a health handler over named checks
func NewHealthHandler(checks map[string]HealthCheck, log *logger.Logger) *HealthHandler {
	if log == nil {
		log = logger.Discard()
	}
	return &HealthHandler{checks: checks, log: log}
}

// Health runs every check with a short timeout
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.log.Entry().WithError(err).WithField("check", name).Warn("health check failed")
			results[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{
		"status": http.StatusText(status),
		"checks": results,
	}
	if status != http.StatusOK {
		body["error"] = ErrServiceUnavailable
		body["retryable"] = true
	}
	respondWithJSON(w, status, body)
}
