package router

import (
	"context"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

type HttpRouter struct {
	h Handlers
}

func (r HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", r.handleHealth)
	app.Get("/metrics", r.h.AdminAuth, monitor.New(monitor.Config{Title: "TrashMap API Metrics"}))

	if r.h.UploadsDir != "" {
		url := r.h.UploadsURL
		if url == "" {
			url = "/uploads"
		}
		app.Static(url, r.h.UploadsDir, fiber.Static{MaxAge: 86400})
	}

	if r.h.OpenAPIFile != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: r.h.OpenAPIFile,
			Path:     "v1",
			Title:    "TrashMap API",
		}))
	}
}

// handleHealth runs every check with a short deadline. Any failure turns
// the response into a 503 listing the failing dependency.
func (r HttpRouter) handleHealth(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := fiber.StatusOK
	checks := make(fiber.Map, len(r.h.HealthChecks))
	for name, check := range r.h.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != fiber.StatusOK {
		state = "degraded"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": state,
		"checks": checks,
	})
}

func NewHttpRouter(h Handlers) *HttpRouter {
	return &HttpRouter{h: h}
}
