package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-parser/internal/appointment"
	"github.com/wolfman30/appointment-parser/internal/cache"
	appconfig "github.com/wolfman30/appointment-parser/internal/config"
	"github.com/wolfman30/appointment-parser/pkg/logging"
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
		logger.Warn("redis not available; result cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildResultCache wraps the Redis client for the parser. The interface is nil
// (not a typed nil) when caching is off.
func BuildResultCache(client *redis.Client, cfg *appconfig.Config) appointment.ResultCache {
	if client == nil {
		return nil
	}
	ttl := cache.DefaultTTL
	if cfg != nil && cfg.ResultCacheTTL > 0 {
		ttl = cfg.ResultCacheTTL
	}
	return cache.NewResultCache(client, ttl)
}
