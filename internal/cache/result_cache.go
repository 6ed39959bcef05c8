package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-parser/internal/appointment"
)

const resultKeyPrefix = "apptparse:result:"

// DefaultTTL bounds how long a parse result is reused. Results depend on the
// reference date, which is already part of the key.
const DefaultTTL = 24 * time.Hour

// ResultCache persists parse results in Redis.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewResultCache returns nil for a nil client so the parser runs uncached.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{client: client, ttl: ttl}
}

func (c *ResultCache) key(k string) string {
	return resultKeyPrefix + k
}

// Get returns the cached result, if any. A miss is not an error.
func (c *ResultCache) Get(ctx context.Context, key string) (*appointment.ParseResult, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("result cache: get: %w", err)
	}
	var result appointment.ParseResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("result cache: unmarshal: %w", err)
	}
	return &result, true, nil
}

// Set stores result under key with the cache TTL.
func (c *ResultCache) Set(ctx context.Context, key string, result appointment.ParseResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("result cache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("result cache: set: %w", err)
	}
	return nil
}
