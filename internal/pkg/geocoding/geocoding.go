// Package geocoding turns free text into coordinates and coordinates into
// administrative areas.
package geocoding

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// ErrNoResults is returned by Reverse when the provider knows nothing about a position.
var ErrNoResults = errors.New("geocoder returned no results")

// Geocoder resolves free text to candidate coordinates in the provider's
// order, best match first. Candidates are not range-checked here; a broken
// entry keeps its position with NaN fields.
type Geocoder interface {
	Search(ctx context.Context, text string) ([]models.Coordinate, error)
}

// ReverseGeocoder resolves a coordinate to its administrative area.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, c models.Coordinate) (*Address, error)
}

// Client is implemented by every provider.
type Client interface {
	Geocoder
	ReverseGeocoder
	Provider() string
}

// Address is the reverse geocoding result. Region is the top-level area
// (state, province, special municipality); Subregion the next level down.
type Address struct {
	Region    string `json:"region"`
	Subregion string `json:"subregion"`
	Formatted string `json:"formatted"`
}

// Jurisdiction converts the address into the report annotation. It returns
// nil when the provider did not name a region.
func (a *Address) Jurisdiction() *models.Jurisdiction {
	if a == nil || strings.TrimSpace(a.Region) == "" {
		return nil
	}
	return &models.Jurisdiction{
		Region:    strings.TrimSpace(a.Region),
		Subregion: strings.TrimSpace(a.Subregion),
	}
}

// New builds the configured provider, wrapped in a redis cache when rdb is
// given. It returns nil for the "none" provider.
func New(cfg config.GeocoderConfig, rdb redis.Cmdable) Client {
	var c Client
	switch cfg.Provider {
	case config.GeocoderGoogle:
		c = NewGoogle(cfg)
	case config.GeocoderNominatim:
		c = NewNominatim(cfg)
	default:
		return nil
	}
	if rdb != nil && cfg.CacheTTL > 0 {
		c = NewCached(c, rdb, cfg.CacheTTL)
	}
	return c
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// firstDistinct returns the first non-empty value that differs from exclude.
func firstDistinct(exclude string, values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" && v != exclude {
			return v
		}
	}
	return ""
}
