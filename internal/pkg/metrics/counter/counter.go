package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/app/models"
)

const sourcesKey = "reports:counters:source"

// Sources counts committed reports per location source in a redis hash.
type Sources struct {
	rdb redis.Cmdable
}

func NewSources(rdb redis.Cmdable) *Sources {
	return &Sources{rdb: rdb}
}

// Add increments the counter for source.
func (s *Sources) Add(ctx context.Context, source models.LocationSource) error {
	if !source.IsValid() {
		return fmt.Errorf("unknown location source %q", source)
	}
	return s.rdb.HIncrBy(ctx, sourcesKey, string(source), 1).Err()
}

// Snapshot returns every source, including the ones never seen, with its count.
func (s *Sources) Snapshot(ctx context.Context) (map[models.LocationSource]int64, error) {
	data, err := s.rdb.HGetAll(ctx, sourcesKey).Result()
	if err != nil {
		return nil, err
	}

	out := make(map[models.LocationSource]int64, len(models.AllLocationSources))
	for _, src := range models.AllLocationSources {
		out[src] = 0
	}
	for field, raw := range data {
		src := models.LocationSource(field)
		if !src.IsValid() {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		out[src] = n
	}
	return out, nil
}
