package router

import (
	"github.com/gofiber/fiber/v2"
)

type ApiRouter struct {
	h Handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "TrashMap API",
		})
	})

	v1 := api.Group("/v1")
	v1.Post("/reports", r.h.Reports.HandleSubmit)
	v1.Get("/reports", r.h.Reports.HandleList)
	v1.Get("/reports/:id", r.h.Reports.HandleGet)
	v1.Get("/uploads/:id/progress", r.h.Reports.HandleProgress)

	if r.h.Stats != nil {
		v1.Get("/stats/sources", r.h.Stats.HandleSources)
	}

	admin := v1.Group("/admin", r.h.AdminAuth)
	admin.Delete("/reports/:id", r.h.Admin.HandleDeleteReport)
}

func NewApiRouter(h Handlers) *ApiRouter {
	return &ApiRouter{h: h}
}
