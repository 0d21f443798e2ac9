package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// New connects to the redis-compatible cache server. A failed ping is logged,
// not fatal: every cache consumer degrades to its uncached path.
func New(ctx context.Context, cfg config.CacheConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("[Cache] Could not connect to cache at %s: %v", cfg.Addr(), err)
	} else {
		log.Infof("[Cache] Connected to cache at %s: %s", cfg.Addr(), pong)
	}
	return client
}

// SetJSON stores v as JSON under key.
func SetJSON(ctx context.Context, c redis.Cmdable, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// GetJSON loads key into dst. The boolean is false on a cache miss.
func GetJSON(ctx context.Context, c redis.Cmdable, key string, dst any) (bool, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("unmarshal cache value %s: %w", key, err)
	}
	return true, nil
}
