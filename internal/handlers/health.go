package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/dlq"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/httputil"
	"github.com/Project-Sentry-Team/Project-Sentry---A-SOC-Workflow/internal/service"
)

// Pinger is a dependency checked by /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerStater reports a circuit breaker state.
type BreakerStater interface {
	State() string
}

// DLQStater reports dead letter queue statistics.
type DLQStater interface {
	Stats(ctx context.Context) dlq.Stats
}

type HealthHandler struct {
	stats   *service.Stats
	checks  map[string]Pinger
	breaker BreakerStater
	dlq     DLQStater
}

type HealthOption func(*HealthHandler)

// WithCheck adds a named dependency to the readiness check.
func WithCheck(name string, p Pinger) HealthOption {
	return func(h *HealthHandler) { h.checks[name] = p }
}

func WithBreaker(b BreakerStater) HealthOption {
	return func(h *HealthHandler) { h.breaker = b }
}

func WithDLQ(d DLQStater) HealthOption {
	return func(h *HealthHandler) { h.dlq = d }
}

func NewHealthHandler(stats *service.Stats, opts ...HealthOption) *HealthHandler {
	if stats == nil {
		stats = service.NewStats()
	}
	h := &HealthHandler{stats: stats, checks: map[string]Pinger{}}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /readyz. Any failing dependency makes it 503.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = "not ready"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	resp := map[string]interface{}{
		"status": status,
		"stats":  h.stats.Health(),
		"checks": checks,
	}
	if h.breaker != nil {
		resp["breaker"] = h.breaker.State()
	}
	if h.dlq != nil {
		resp["dlq"] = h.dlq.Stats(ctx)
	}
	httputil.WriteJSON(w, code, resp)
}
