package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/leadflow/internal/api/router"
	"github.com/wolfman30/leadflow/internal/app/bootstrap"
	appconfig "github.com/wolfman30/leadflow/internal/config"
	"github.com/wolfman30/leadflow/internal/health"
	"github.com/wolfman30/leadflow/internal/leads"
	"github.com/wolfman30/leadflow/internal/observability/metrics"
	"github.com/wolfman30/leadflow/pkg/logging"
)

func main() {
	// Load .env file when present
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting leadflow API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"store", cfg.StoreDriver,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	fmt.Println("Server exited gracefully")
}

// run owns every long-lived resource: it opens them, serves until ctx is
// cancelled and then releases them in reverse order.
func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	store, err := bootstrap.OpenStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open lead store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("lead store close failed", "error", err)
		}
	}()

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	metricsHandler, leadMetrics, httpMetrics := setupMetrics()

	svc := leads.NewService(store.Repo, logger,
		leads.WithMetrics(leadMetrics),
		leads.WithStatsCache(leads.NewRedisStatsCache(redisClient, cfg.StatsCacheTTL, logger)),
	)

	healthHandler := health.NewHandler(logger).Register("store", svc)
	if redisClient != nil {
		healthHandler.Register("redis", health.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}))
	} else {
		healthHandler.Register("redis", nil)
	}

	limiter, stopLimiter := bootstrap.BuildLimiter(cfg, redisClient)
	defer stopLimiter()

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       leads.NewHandler(svc, logger),
		HealthHandler:      healthHandler,
		MetricsHandler:     metricsHandler,
		HTTPMetrics:        httpMetrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Limiter:            limiter,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func setupMetrics() (http.Handler, *metrics.LeadMetrics, *metrics.HTTPMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return handler, metrics.NewLeadMetrics(reg), metrics.NewHTTPMetrics(reg)
}
