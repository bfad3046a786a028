package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadflow/internal/config"
	httpmiddleware "github.com/wolfman30/leadflow/internal/http/middleware"
	"github.com/wolfman30/leadflow/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; stats cache and shared rate limit disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildLimiter picks the shared Redis limiter when a client is available and
// the per-process limiter otherwise. The returned stop func releases the
// limiter's background work.
func BuildLimiter(cfg *appconfig.Config, redisClient *redis.Client) (httpmiddleware.Limiter, func()) {
	if cfg.RateLimitRequests <= 0 {
		return nil, func() {}
	}
	if redisClient != nil {
		return httpmiddleware.NewRedisLimiter(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
	}
	limiter := httpmiddleware.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	return limiter, limiter.Stop
}
