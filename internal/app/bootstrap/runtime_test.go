package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/leadflow/internal/config"
	httpmiddleware "github.com/wolfman30/leadflow/internal/http/middleware"
	"github.com/wolfman30/leadflow/pkg/logging"
)

func TestBuildRedisClient_Disabled(t *testing.T) {
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}
}

func TestBuildRedisClient_Verify(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{RedisAddr: mr.Addr()}

	client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	mr.Close()
	if client := BuildRedisClient(context.Background(), cfg, logging.Discard(), true); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestBuildLimiter(t *testing.T) {
	cfg := &appconfig.Config{RateLimitRequests: 100, RateLimitWindow: 15 * time.Minute}

	limiter, stop := BuildLimiter(cfg, nil)
	if _, ok := limiter.(*httpmiddleware.MemoryLimiter); !ok {
		t.Fatalf("expected memory limiter without redis, got %T", limiter)
	}
	stop()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	limiter, stop = BuildLimiter(cfg, client)
	defer stop()
	if _, ok := limiter.(*httpmiddleware.RedisLimiter); !ok {
		t.Fatalf("expected redis limiter, got %T", limiter)
	}

	cfg.RateLimitRequests = 0
	if limiter, _ := BuildLimiter(cfg, nil); limiter != nil {
		t.Fatalf("expected rate limiting disabled, got %T", limiter)
	}
}

func TestOpenStore_Memory(t *testing.T) {
	store, err := OpenStore(context.Background(), &appconfig.Config{StoreDriver: appconfig.StoreMemory}, logging.Discard())
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close(context.Background())
	if err := store.Repo.Ping(context.Background()); err != nil {
		t.Fatalf("memory store ping failed: %v", err)
	}
}

func TestOpenStore_Errors(t *testing.T) {
	if _, err := OpenStore(context.Background(), &appconfig.Config{StoreDriver: "cassandra"}, logging.Discard()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
	if _, err := OpenStore(context.Background(), &appconfig.Config{StoreDriver: appconfig.StorePostgres}, logging.Discard()); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
	var nilStore *Store
	if err := nilStore.Close(context.Background()); err != nil {
		t.Fatalf("nil store close must be a no-op, got %v", err)
	}
}
