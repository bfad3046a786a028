package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "STORE_DRIVER", "REDIS_ADDR", "CORS_ALLOWED_ORIGINS", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "API_BASE_URL"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "5000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" || cfg.IsProduction() {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.StoreDriver != StoreMongo {
		t.Fatalf("expected mongo store by default, got %s", cfg.StoreDriver)
	}
	if cfg.RedisAddr != "" {
		t.Fatalf("expected redis disabled by default, got %s", cfg.RedisAddr)
	}
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("expected 100 requests per 15m, got %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"http://localhost:3000"}) {
		t.Fatalf("unexpected default origins %v", cfg.CORSAllowedOrigins)
	}
	if cfg.APIBaseURL != "http://localhost:5000/api" {
		t.Fatalf("unexpected default api base url %s", cfg.APIBaseURL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "Production")
	t.Setenv("STORE_DRIVER", " Postgres ")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("STATS_CACHE_TTL", "2m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("RATE_LIMIT_REQUESTS", "20")
	t.Setenv("RATE_LIMIT_WINDOW", "1m")
	t.Setenv("API_BASE_URL", "http://api:5000/api/")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production env, got %s", cfg.Env)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Fatalf("expected postgres store, got %q", cfg.StoreDriver)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.RedisTLS || cfg.StatsCacheTTL != 2*time.Minute {
		t.Fatalf("expected redis overrides, got tls=%v ttl=%s", cfg.RedisTLS, cfg.StatsCacheTTL)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Fatalf("expected origins %v, got %v", want, cfg.CORSAllowedOrigins)
	}
	if cfg.RateLimitRequests != 20 || cfg.RateLimitWindow != time.Minute {
		t.Fatalf("expected rate limit override, got %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
	if cfg.APIBaseURL != "http://api:5000/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.APIBaseURL)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("RATE_LIMIT_REQUESTS", "lots")
	t.Setenv("RATE_LIMIT_WINDOW", "soon")
	cfg := Load()
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("expected defaults for malformed values, got %d per %s", cfg.RateLimitRequests, cfg.RateLimitWindow)
	}
}
