package router

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadflow/internal/health"
	"github.com/wolfman30/leadflow/internal/http/envelope"
	httpmiddleware "github.com/wolfman30/leadflow/internal/http/middleware"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	LeadsHandler  *leads.Handler
	HealthHandler *health.Handler

	// MetricsHandler serves /metrics when set; HTTPMetrics records per-route
	// counters when set.
	MetricsHandler http.Handler
	HTTPMetrics    *metrics.HTTPMetrics

	CORSAllowedOrigins []string

	// Limiter guards /api; nil disables rate limiting.
	Limiter httpmiddleware.Limiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	healthHandler := cfg.HealthHandler
	if healthHandler == nil {
		healthHandler = health.NewHandler(logger)
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.Instrument(cfg.HTTPMetrics))
	r.Use(httpmiddleware.RequestLogger(logger))
	r.Use(httpmiddleware.Recover(logger))
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.NotFound(routeNotFound)
	r.MethodNotAllowed(routeNotFound)

	// Probes and metrics stay outside the rate limit.
	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler.Live)
		public.Get("/ready", healthHandler.Ready)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		if cfg.Limiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.Limiter, cfg.HTTPMetrics, logger))
		}
		if cfg.LeadsHandler != nil {
			api.Mount("/leads", cfg.LeadsHandler.Routes())
		}
	})

	return r
}

func routeNotFound(w http.ResponseWriter, r *http.Request) {
	envelope.Fail(w, http.StatusNotFound, fmt.Sprintf("Route %s not found", r.URL.RequestURI()))
}
