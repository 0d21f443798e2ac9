// Package location turns the evidence attached to a submission into one
// authoritative coordinate.
package location

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
	"github.com/trashmap/trashmap-api/internal/pkg/geocoding"
	"github.com/trashmap/trashmap-api/internal/pkg/metadata"
)

// ErrManualInputRequired means every automatic stage came up empty and the
// caller has to pick the location on a map.
var ErrManualInputRequired = errors.New("manual input required")

// Stage names accepted in LOCATION_STAGES.
type Stage string

const (
	StageEXIF   Stage = "exif"
	StageText   Stage = "text"
	StageDevice Stage = "device"
)

// DefaultStages is the precedence used when nothing is configured.
var DefaultStages = []Stage{StageEXIF, StageText, StageDevice}

// Input is the evidence available for one submission. Every field is optional.
type Input struct {
	Image  []byte
	Hint   string
	Device DevicePositionProvider
	Manual *ManualPick
}

// Resolution is a resolved coordinate and the stage that produced it.
type Resolution struct {
	Coordinate models.Coordinate
	Source     models.LocationSource
	CapturedAt *time.Time
}

// Resolver runs the stage chain. It is safe for concurrent use once built.
type Resolver struct {
	geocoder           geocoding.Geocoder
	stages             []Stage
	deviceTimeout      time.Duration
	captureFallbackNow bool
	onManualRequired   func(ctx context.Context)

	extract func([]byte) metadata.Result
	now     func() time.Time
}

// NewResolver builds a resolver from config. geocoder may be nil, which
// disables the text stage.
func NewResolver(cfg config.LocationConfig, geocoder geocoding.Geocoder) *Resolver {
	stages := make([]Stage, 0, len(cfg.Stages))
	for _, s := range cfg.Stages {
		stages = append(stages, Stage(strings.ToLower(strings.TrimSpace(s))))
	}
	if len(stages) == 0 {
		stages = append(stages, DefaultStages...)
	}
	timeout := cfg.DeviceTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		geocoder:           geocoder,
		stages:             stages,
		deviceTimeout:      timeout,
		captureFallbackNow: cfg.CaptureFallbackNow,
		extract:            metadata.Extract,
		now:                time.Now,
	}
}

// OnManualRequired registers a hook that runs when the chain is exhausted and
// the resolver starts waiting on a ManualPick.
func (r *Resolver) OnManualRequired(fn func(ctx context.Context)) {
	r.onManualRequired = fn
}

// Stages returns the configured automatic stages in order.
func (r *Resolver) Stages() []Stage {
	return append([]Stage(nil), r.stages...)
}

// Resolve walks the stages in order and returns the first coordinate found.
// A supplied manual pick wins at every point: before a stage runs, while it
// waits, and over the coordinate it returns.
func (r *Resolver) Resolve(ctx context.Context, in Input) (Resolution, error) {
	meta := r.extract(in.Image)

	res := Resolution{CapturedAt: meta.CapturedAt}
	if res.CapturedAt == nil && r.captureFallbackNow {
		now := r.now().UTC()
		res.CapturedAt = &now
	}

	for _, stage := range r.stages {
		if c, ok := in.Manual.Coordinate(); ok {
			return res.with(c, models.LocationSourceManual), nil
		}
		if err := ctx.Err(); err != nil {
			return Resolution{}, err
		}

		var (
			c      models.Coordinate
			source models.LocationSource
			ok     bool
		)
		switch stage {
		case StageEXIF:
			if meta.Coordinate != nil {
				c, source, ok = *meta.Coordinate, models.LocationSourceEXIF, true
			}
		case StageText:
			c, ok = r.geocodeHint(ctx, in.Hint)
			source = models.LocationSourceTextGeocode
		case StageDevice:
			c, ok = r.devicePosition(ctx, in.Device, in.Manual)
			source = models.LocationSourceDeviceGPS
		default:
			log.Warnf("[Resolver] Unknown stage %q skipped", stage)
		}
		if mc, picked := in.Manual.Coordinate(); picked {
			if ok {
				log.Debugf("[Resolver] Manual pick overrides %s result", source)
			}
			return res.with(mc, models.LocationSourceManual), nil
		}
		if ok {
			log.Debugf("[Resolver] Resolved %s via %s", c, source)
			return res.with(c, source), nil
		}
	}

	return r.awaitManual(ctx, in.Manual, res)
}

func (r *Resolver) geocodeHint(ctx context.Context, hint string) (models.Coordinate, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" || r.geocoder == nil {
		return models.Coordinate{}, false
	}

	candidates, err := r.geocoder.Search(ctx, hint)
	if err != nil {
		log.Warnf("[Resolver] Geocoding %q failed, falling through: %v", hint, err)
		return models.Coordinate{}, false
	}
	if len(candidates) == 0 {
		return models.Coordinate{}, false
	}
	if err := candidates[0].Validate(); err != nil {
		log.Warnf("[Resolver] Geocoder returned unusable candidate for %q: %v", hint, err)
		return models.Coordinate{}, false
	}
	return candidates[0], true
}

// devicePosition waits for the device fix, giving up early when the
// submitter picks a point on the map.
func (r *Resolver) devicePosition(ctx context.Context, device DevicePositionProvider, pick *ManualPick) (models.Coordinate, bool) {
	if device == nil {
		return models.Coordinate{}, false
	}

	dctx, cancel := context.WithTimeout(ctx, r.deviceTimeout)
	defer cancel()

	type result struct {
		c   models.Coordinate
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := device.Position(dctx)
		ch <- result{c, err}
	}()

	select {
	case res := <-ch:
		if res.err != nil {
			log.Infof("[Resolver] Device position unavailable: %v", res.err)
			return models.Coordinate{}, false
		}
		if err := res.c.Validate(); err != nil {
			log.Warnf("[Resolver] Device position rejected: %v", err)
			return models.Coordinate{}, false
		}
		return res.c, true
	case <-pick.Done():
		log.Debugf("[Resolver] Manual pick arrived while waiting for the device")
		return models.Coordinate{}, false
	case <-dctx.Done():
		log.Infof("[Resolver] Device position timed out after %s", r.deviceTimeout)
		return models.Coordinate{}, false
	}
}

func (r *Resolver) awaitManual(ctx context.Context, pick *ManualPick, res Resolution) (Resolution, error) {
	if c, ok := pick.Coordinate(); ok {
		return res.with(c, models.LocationSourceManual), nil
	}
	if pick == nil {
		return Resolution{}, ErrManualInputRequired
	}

	if r.onManualRequired != nil {
		r.onManualRequired(ctx)
	}

	select {
	case <-pick.Done():
		c, _ := pick.Coordinate()
		return res.with(c, models.LocationSourceManual), nil
	case <-ctx.Done():
		return Resolution{}, fmt.Errorf("%w: %w", ErrManualInputRequired, ctx.Err())
	}
}

func (res Resolution) with(c models.Coordinate, source models.LocationSource) Resolution {
	res.Coordinate = c
	res.Source = source
	return res
}
