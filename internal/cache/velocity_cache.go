// Package cache memoizes rolling-velocity lookups for the API surface. The
// memory bank query is cheap but hot; the report endpoints hit it per SKU.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/greenridge/replen/internal/config"
	"github.com/greenridge/replen/internal/history"
)

const (
	velocityKeyPrefix     = "velocity:rolling"
	velocityScanBatchSize = 100
	defaultCacheTTL       = time.Minute
)

type VelocityCache interface {
	Get(ctx context.Context, sku, location string, weeks int) (history.RollingVelocity, bool, error)
	Set(ctx context.Context, sku, location string, weeks int, rv history.RollingVelocity) error
	InvalidateAll(ctx context.Context) error
}

type redisVelocityCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopVelocityCache struct{}

// NewVelocityCache returns a redis-backed cache, or a noop cache when caching
// is disabled in config.
func NewVelocityCache(cfg config.CacheConfig) (VelocityCache, error) {
	if !cfg.Enabled {
		return &noopVelocityCache{}, nil
	}

	client, ttl, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	return &redisVelocityCache{client: client, ttl: ttl}, nil
}

func NewNoopVelocityCache() VelocityCache {
	return &noopVelocityCache{}
}

func newRedisClient(cfg config.CacheConfig) (*redis.Client, time.Duration, error) {
	opts, err := buildRedisOptions(cfg)
	if err != nil {
		return nil, 0, err
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, 0, fmt.Errorf("redis ping failed: %w", err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	return client, ttl, nil
}

func buildRedisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		return opt, nil
	}

	host := cfg.RedisHost
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.RedisPort
	if port == "" {
		port = "6379"
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(host, port),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, nil
}

func (c *redisVelocityCache) Get(ctx context.Context, sku, location string, weeks int) (history.RollingVelocity, bool, error) {
	payload, err := c.client.Get(ctx, velocityKey(sku, location, weeks)).Bytes()
	if err == redis.Nil {
		return history.RollingVelocity{}, false, nil
	}
	if err != nil {
		return history.RollingVelocity{}, false, fmt.Errorf("redis get failed: %w", err)
	}

	var rv history.RollingVelocity
	if err := json.Unmarshal(payload, &rv); err != nil {
		return history.RollingVelocity{}, false, fmt.Errorf("decode velocity cache: %w", err)
	}
	return rv, true, nil
}

func (c *redisVelocityCache) Set(ctx context.Context, sku, location string, weeks int, rv history.RollingVelocity) error {
	payload, err := json.Marshal(rv)
	if err != nil {
		return fmt.Errorf("encode velocity cache: %w", err)
	}
	if err := c.client.Set(ctx, velocityKey(sku, location, weeks), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// InvalidateAll is called after every ingestion batch; stale velocities must
// not outlive a memory-bank merge.
func (c *redisVelocityCache) InvalidateAll(ctx context.Context) error {
	var cursor uint64
	pattern := velocityKeyPrefix + "*"
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, velocityScanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("redis scan failed: %w", err)
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis delete failed: %w", err)
			}
		}
		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}
	return nil
}

func (n *noopVelocityCache) Get(ctx context.Context, sku, location string, weeks int) (history.RollingVelocity, bool, error) {
	return history.RollingVelocity{}, false, nil
}

func (n *noopVelocityCache) Set(ctx context.Context, sku, location string, weeks int, rv history.RollingVelocity) error {
	return nil
}

func (n *noopVelocityCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func velocityKey(sku, location string, weeks int) string {
	return fmt.Sprintf("%s:%s:%s:%d", velocityKeyPrefix, strings.ToUpper(sku), strings.ToLower(location), weeks)
}
