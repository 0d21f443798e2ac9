// Package cachetest provides a redis client for tests, skipping the test when
// no server is reachable.
package cachetest

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewClient returns a client on an isolated, flushed database. Each package
// should use its own db number so parallel package runs do not collide.
func NewClient(t *testing.T, db int) *redis.Client {
	t.Helper()

	hosts := unique(os.Getenv("CACHE_HOST"), "cache", "localhost", "127.0.0.1")
	ports := unique(os.Getenv("CACHE_PORT"), "6379")
	password := os.Getenv("CACHE_PASSWORD")

	var lastErr error
	for _, host := range hosts {
		for _, port := range ports {
			client := redis.NewClient(&redis.Options{
				Addr:     fmt.Sprintf("%s:%s", host, port),
				Password: password,
				DB:       db,
			})

			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_, err := client.Ping(ctx).Result()
			cancel()
			if err != nil {
				lastErr = err
				_ = client.Close()
				continue
			}

			if err := client.FlushDB(context.Background()).Err(); err != nil {
				_ = client.Close()
				t.Fatalf("failed to flush redis db %d: %v", db, err)
			}
			t.Cleanup(func() {
				_ = client.FlushDB(context.Background()).Err()
				_ = client.Close()
			})
			return client
		}
	}

	t.Skipf("Skipping Redis-dependent test: no reachable Redis endpoint (%v)", lastErr)
	return nil
}

func unique(values ...string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
