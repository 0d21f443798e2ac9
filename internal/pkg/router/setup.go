package router

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/trashmap/trashmap-api/app/controllers"
)

type Router interface {
	InstallRouter(app *fiber.App)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Handlers carries everything the routers mount. Stats and the static
// upload directory are optional.
type Handlers struct {
	Reports   *controllers.ReportController
	Admin     *controllers.AdminController
	Stats     *controllers.StatsController
	AdminAuth fiber.Handler

	HealthChecks map[string]HealthCheck
	UploadsDir   string
	UploadsURL   string
	OpenAPIFile  string
}

func InstallRouter(app *fiber.App, h Handlers) {
	setup(app, NewHttpRouter(h), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
