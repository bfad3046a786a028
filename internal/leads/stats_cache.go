package leads

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/leadflow/pkg/logging"
)

// StatsCache holds the last computed Stats between writes.
//
// Every Invalidate starts a new generation. Set only stores stats computed
// under the generation that is still current, so counts read before a write
// cannot be cached after that write's Invalidate.
type StatsCache interface {
	Get(ctx context.Context) (*Stats, bool)
	Generation(ctx context.Context) int64
	Set(ctx context.Context, generation int64, stats *Stats)
	Invalidate(ctx context.Context)
}

const defaultStatsKey = "leadflow:leads:stats"

// noGeneration means the generation could not be read; Set ignores it.
const noGeneration = -1

var errStaleStats = errors.New("leads: stats computed under an old generation")

// RedisStatsCache keeps stats in Redis so every API instance shares them.
// Failures are logged and treated as misses.
type RedisStatsCache struct {
	client *redis.Client
	key    string
	genKey string
	ttl    time.Duration
	logger *logging.Logger
}

// NewRedisStatsCache returns nil when client is nil so callers can pass the
// result straight to WithStatsCache.
func NewRedisStatsCache(client *redis.Client, ttl time.Duration, logger *logging.Logger) *RedisStatsCache {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisStatsCache{
		client: client,
		key:    defaultStatsKey,
		genKey: defaultStatsKey + ":gen",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *RedisStatsCache) Get(ctx context.Context) (*Stats, bool) {
	raw, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("stats cache read failed", "error", err)
		}
		return nil, false
	}
	var stats Stats
	if err := json.Unmarshal(raw, &stats); err != nil {
		c.logger.Warn("stats cache entry corrupt", "error", err)
		return nil, false
	}
	return &stats, true
}

// Generation returns the current write generation, or noGeneration when
// Redis cannot be read.
func (c *RedisStatsCache) Generation(ctx context.Context) int64 {
	gen, err := readGeneration(ctx, c.client, c.genKey)
	if err != nil {
		c.logger.Warn("stats cache generation read failed", "error", err)
		return noGeneration
	}
	return gen
}

// Set stores stats only while generation is still current. The check and the
// write run in one WATCH transaction, so a concurrent Invalidate aborts it.
func (c *RedisStatsCache) Set(ctx context.Context, generation int64, stats *Stats) {
	if generation < 0 {
		return
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		c.logger.Warn("stats cache encode failed", "error", err)
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := readGeneration(ctx, tx, c.genKey)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleStats
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, raw, c.ttl)
			return nil
		})
		return err
	}, c.genKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleStats), errors.Is(err, redis.TxFailedErr):
		c.logger.Debug("stale stats not cached", "generation", generation)
	default:
		c.logger.Warn("stats cache write failed", "error", err)
	}
}

// Invalidate drops the cached stats and starts a new generation.
func (c *RedisStatsCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey)
		pipe.Del(ctx, c.key)
		return nil
	})
	if err != nil {
		c.logger.Warn("stats cache invalidate failed", "error", err)
	}
}

// stringGetter is satisfied by both *redis.Client and *redis.Tx.
type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readGeneration(ctx context.Context, client stringGetter, key string) (int64, error) {
	gen, err := client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}
