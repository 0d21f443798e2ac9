package geocoding

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/cache"
)

const cacheKeyPrefix = "geocode:"

// Cached memoizes successful lookups of another client in redis. Cache
// failures never fail a lookup.
type Cached struct {
	next Client
	rdb  redis.Cmdable
	ttl  time.Duration
}

func NewCached(next Client, rdb redis.Cmdable, ttl time.Duration) *Cached {
	return &Cached{next: next, rdb: rdb, ttl: ttl}
}

func (c *Cached) Provider() string { return c.next.Provider() }

func (c *Cached) Search(ctx context.Context, text string) ([]models.Coordinate, error) {
	key := SearchCacheKey(c.next.Provider(), text)

	var hit []models.Coordinate
	if found, err := cache.GetJSON(ctx, c.rdb, key, &hit); err != nil {
		log.Warnf("[Geocoder] Cache read failed for %s: %v", key, err)
	} else if found {
		return hit, nil
	}

	res, err := c.next.Search(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(res) > 0 && encodable(res) {
		if err := cache.SetJSON(ctx, c.rdb, key, res, c.ttl); err != nil {
			log.Warnf("[Geocoder] Cache write failed for %s: %v", key, err)
		}
	}
	return res, nil
}

func (c *Cached) Reverse(ctx context.Context, coord models.Coordinate) (*Address, error) {
	key := ReverseCacheKey(c.next.Provider(), coord)

	var hit Address
	if found, err := cache.GetJSON(ctx, c.rdb, key, &hit); err != nil {
		log.Warnf("[Geocoder] Cache read failed for %s: %v", key, err)
	} else if found {
		return &hit, nil
	}

	res, err := c.next.Reverse(ctx, coord)
	if err != nil {
		return nil, err
	}
	if err := cache.SetJSON(ctx, c.rdb, key, res, c.ttl); err != nil {
		log.Warnf("[Geocoder] Cache write failed for %s: %v", key, err)
	}
	return res, nil
}

// SearchCacheKey normalizes case and surrounding whitespace of the query.
func SearchCacheKey(provider, text string) string {
	return cacheKeyPrefix + provider + ":search:" + strings.ToLower(strings.TrimSpace(text))
}

// ReverseCacheKey rounds to five decimals (about one metre).
func ReverseCacheKey(provider string, c models.Coordinate) string {
	return fmt.Sprintf("%s%s:reverse:%.5f,%.5f", cacheKeyPrefix, provider, c.Lat, c.Lng)
}

// encodable reports whether every candidate survives JSON encoding.
func encodable(cs []models.Coordinate) bool {
	for _, c := range cs {
		if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
			return false
		}
	}
	return true
}
