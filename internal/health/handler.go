// Package health serves liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/wolfman30/leadflow/internal/http/envelope"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// Pinger is anything that can report whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Liveness is the body of GET /health.
type Liveness struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Readiness is the data of GET /ready.
type Readiness struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// Handler answers the probes. Dependencies are checked only by Ready.
type Handler struct {
	deps      map[string]Pinger
	startTime time.Time
	timeout   time.Duration
	logger    *logging.Logger
	now       func() time.Time
}

func NewHandler(logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		deps:      make(map[string]Pinger),
		startTime: time.Now(),
		timeout:   2 * time.Second,
		logger:    logger,
		now:       time.Now,
	}
}

// Register adds a named dependency to the readiness check. A nil pinger is
// reported as "not configured".
func (h *Handler) Register(name string, p Pinger) *Handler {
	h.deps[name] = p
	return h
}

// Live handles GET /health
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(Liveness{
		Success:   true,
		Message:   "Server is running",
		Timestamp: h.now().UTC(),
	})
}

// Ready handles GET /ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "healthy"
	deps := make(map[string]string, len(names))
	for _, name := range names {
		p := h.deps[name]
		if p == nil {
			deps[name] = "not configured"
			continue
		}
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			deps[name] = "unhealthy"
			status = "degraded"
			continue
		}
		deps[name] = "healthy"
	}

	body := Readiness{
		Status:       status,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Dependencies: deps,
	}
	if status != "healthy" {
		envelope.Write(w, http.StatusServiceUnavailable, envelope.Envelope[Readiness]{
			Success: false,
			Data:    body,
			Error:   "Service degraded",
		})
		return
	}
	envelope.OK(w, http.StatusOK, body, "")
}
