// Package redis implements the optional response cache. Successful payloads
// are kept under a short TTL so repeated reads never touch the upstream.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// DefaultCacheTTL applies when the config leaves the TTL unset.
const DefaultCacheTTL = 5 * time.Minute

// Cache wraps the Redis payload cache.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// NewCache connects to Redis and verifies the connection.
func NewCache(cfg Config, log *slog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if log == nil {
		log = slog.Default()
	}
	return &Cache{rdb: rdb, ttl: ttl, log: log}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

func cacheKey(key string) string {
	return "annonce:cache:" + key
}

// Get returns the cached payload for key, if present. Redis errors degrade to
// a miss: the cache must never take a logical call down with it.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache read failed", "key", key, "error", err)
		return nil, false
	}
	return val, true
}

// Set stores a payload under the configured TTL, best effort.
func (c *Cache) Set(ctx context.Context, key string, payload []byte) {
	if err := c.rdb.Set(ctx, cacheKey(key), payload, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", "key", key, "error", err)
	}
}
