package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
)

// SourceSnapshotter reads the per-source report counters.
type SourceSnapshotter interface {
	Snapshot(ctx context.Context) (map[models.LocationSource]int64, error)
}

type StatsController struct {
	sources SourceSnapshotter
}

func NewStatsController(sources SourceSnapshotter) *StatsController {
	return &StatsController{sources: sources}
}

// HandleSources returns how many reports each location stage produced.
// GET /api/v1/stats/sources
func (sc *StatsController) HandleSources(c *fiber.Ctx) error {
	counts, err := sc.sources.Snapshot(c.UserContext())
	if err != nil {
		fiberlog.Errorf("[API] Reading source counters failed: %v", err)
		return errorJSON(c, fiber.StatusServiceUnavailable, "stats_unavailable", "counters are unavailable")
	}

	var total int64
	for _, n := range counts {
		total += n
	}
	return c.JSON(fiber.Map{
		"sources": counts,
		"total":   total,
	})
}
