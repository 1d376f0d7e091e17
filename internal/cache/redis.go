// Package cache provides a Redis-backed cache for generation responses.
// Identical (feature, prompt) pairs are served from cache without hitting
// the upstream API or spending quota. A missing or unreachable Redis
// degrades silently to direct calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"nutriplan/internal/ai"
	"nutriplan/internal/models"
	"nutriplan/pkg/logger"
)

type ResponseCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *logger.Logger
}

// New connects to Redis. An empty addr returns a disabled cache that
// always misses.
func New(addr, password string, db int, ttl time.Duration, log *logger.Logger) *ResponseCache {
	c := &ResponseCache{ttl: ttl, logger: log.Named("cache")}
	if addr == "" {
		return c
	}

	c.rdb = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		c.logger.Warnw("redis unavailable, response cache disabled", "addr", addr, "error", err)
		c.rdb = nil
	}

	return c
}

func (c *ResponseCache) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *ResponseCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Close()
}

func key(feature models.Feature, prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("gen:%s:%s", feature, hex.EncodeToString(sum[:]))
}

// Get returns the cached result for a prompt, if any.
func (c *ResponseCache) Get(ctx context.Context, feature models.Feature, prompt string) (*ai.Result, bool) {
	if !c.Enabled() {
		return nil, false
	}

	data, err := c.rdb.Get(ctx, key(feature, prompt)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warnw("cache read failed", "error", err)
		}
		return nil, false
	}

	var res ai.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warnw("cache entry corrupt, dropping", "error", err)
		c.rdb.Del(ctx, key(feature, prompt))
		return nil, false
	}

	return &res, true
}

// Set stores a result. Failures are logged and ignored.
func (c *ResponseCache) Set(ctx context.Context, feature models.Feature, prompt string, res *ai.Result) {
	if !c.Enabled() || res == nil {
		return
	}

	data, err := json.Marshal(res)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key(feature, prompt), data, c.ttl).Err(); err != nil {
		c.logger.Warnw("cache write failed", "error", err)
	}
}
