// Package cache provides the two-tier cache used to memoize classifier
// distributions: an in-process LRU with TTL in front of an optional Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/symptom-dx-server/internal/domain"
)

const keyPrefix = "symptomdx:dist:"

// Stats represents cache performance statistics
type Stats struct {
	MemoryHits   int64     `json:"memory_hits"`
	MemoryMisses int64     `json:"memory_misses"`
	RedisHits    int64     `json:"redis_hits"`
	RedisMisses  int64     `json:"redis_misses"`
	ErrorCount   int64     `json:"error_count"`
	LastReset    time.Time `json:"last_reset"`
}

// HitRatio returns the share of lookups answered by either tier.
func (s Stats) HitRatio() float64 {
	total := s.MemoryHits + s.MemoryMisses
	if total == 0 {
		return 0
	}
	return float64(s.MemoryHits+s.RedisHits) / float64(total)
}

// Layered is a distribution cache with a memory tier and an optional Redis tier.
type Layered struct {
	memory *expirable.LRU[string, domain.Distribution] // Tier 1: hot data
	redis  *redis.Client                               // Tier 2: shared, may be nil
	ttl    time.Duration

	logger  *logrus.Logger
	stats   Stats
	statsMu sync.RWMutex
}

// New creates a layered cache from cfg. When cfg.RedisURL is set the Redis
// tier is connected and pinged.
func New(cfg domain.CacheConfig, logger *logrus.Logger) (*Layered, error) {
	var client *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		if cfg.PoolSize > 0 {
			opts.PoolSize = cfg.PoolSize
		}
		if cfg.PoolTimeout > 0 {
			opts.PoolTimeout = cfg.PoolTimeout
		}
		if cfg.MaxRetries != 0 {
			opts.MaxRetries = cfg.MaxRetries
		}
		client = redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
	}
	return NewWithClient(cfg, client, logger), nil
}

// NewWithClient creates a layered cache around an existing Redis client, which
// may be nil for a memory-only cache.
func NewWithClient(cfg domain.CacheConfig, client *redis.Client, logger *logrus.Logger) *Layered {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 1000
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}

	return &Layered{
		memory: expirable.NewLRU[string, domain.Distribution](cfg.MaxItems, nil, cfg.TTL),
		redis:  client,
		ttl:    cfg.TTL,
		logger: logger,
		stats:  Stats{LastReset: time.Now()},
	}
}

// Key derives a stable cache key from a resolved symptom sequence. Order
// matters because duplicates and order are preserved upstream.
func Key(symptoms []string) string {
	hash := sha256.Sum256([]byte(strings.Join(symptoms, "\x1f")))
	return keyPrefix + hex.EncodeToString(hash[:])
}

// Get looks key up in memory, then in Redis. A Redis hit is promoted to memory.
func (c *Layered) Get(ctx context.Context, key string) (domain.Distribution, bool) {
	if dist, ok := c.memory.Get(key); ok {
		c.incr(func(s *Stats) { s.MemoryHits++ })
		return dist, true
	}
	c.incr(func(s *Stats) { s.MemoryMisses++ })

	if c.redis == nil {
		return nil, false
	}

	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.incr(func(s *Stats) { s.ErrorCount++ })
			c.logger.WithError(err).WithField("cache_tier", "redis").Debug("Cache lookup failed")
		}
		c.incr(func(s *Stats) { s.RedisMisses++ })
		return nil, false
	}

	var dist domain.Distribution
	if err := json.Unmarshal(data, &dist); err != nil {
		c.incr(func(s *Stats) { s.ErrorCount++; s.RedisMisses++ })
		return nil, false
	}

	c.incr(func(s *Stats) { s.RedisHits++ })
	c.memory.Add(key, dist)
	return dist, true
}

// Set stores dist in both tiers. Redis failures are counted and logged only.
func (c *Layered) Set(ctx context.Context, key string, dist domain.Distribution) {
	c.memory.Add(key, dist)

	if c.redis == nil {
		return
	}
	data, err := json.Marshal(dist)
	if err != nil {
		c.incr(func(s *Stats) { s.ErrorCount++ })
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.incr(func(s *Stats) { s.ErrorCount++ })
		c.logger.WithError(err).WithField("cache_tier", "redis").Debug("Cache store failed")
	}
}

// Len returns the number of entries in the memory tier.
func (c *Layered) Len() int {
	return c.memory.Len()
}

// Purge empties the memory tier and resets statistics.
func (c *Layered) Purge() {
	c.memory.Purge()
	c.statsMu.Lock()
	c.stats = Stats{LastReset: time.Now()}
	c.statsMu.Unlock()
}

// Stats returns a snapshot of cache statistics.
func (c *Layered) Stats() Stats {
	c.statsMu.RLock()
	defer c.statsMu.RUnlock()
	return c.stats
}

// GetStats reports hit statistics for the health endpoint. With a Redis tier
// the server is pinged and its pool statistics are included.
func (c *Layered) GetStats(ctx context.Context) (map[string]interface{}, error) {
	snapshot := c.Stats()
	stats := map[string]interface{}{
		"memory_items":  c.Len(),
		"memory_hits":   snapshot.MemoryHits,
		"memory_misses": snapshot.MemoryMisses,
		"redis_hits":    snapshot.RedisHits,
		"redis_misses":  snapshot.RedisMisses,
		"error_count":   snapshot.ErrorCount,
		"hit_ratio":     snapshot.HitRatio(),
		"last_reset":    snapshot.LastReset,
		"redis_enabled": c.redis != nil,
	}
	if c.redis == nil {
		return stats, nil
	}

	if err := c.redis.Ping(ctx).Err(); err != nil {
		return stats, fmt.Errorf("redis ping failed: %w", err)
	}
	stats["redis_pool"] = c.redis.PoolStats()
	return stats, nil
}

// Close releases the Redis connection, if any.
func (c *Layered) Close() error {
	if c.redis == nil {
		return nil
	}
	return c.redis.Close()
}

func (c *Layered) incr(fn func(*Stats)) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	fn(&c.stats)
}
