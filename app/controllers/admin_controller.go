package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

// AdminController handles the management screen's API calls.
type AdminController struct {
	reports repository.ReportRepository
	store   storage.ObjectStore
}

func NewAdminController(reports repository.ReportRepository, store storage.ObjectStore) *AdminController {
	return &AdminController{reports: reports, store: store}
}

// HandleDeleteReport removes the stored image first and then the record.
// If the image cannot be removed the record is kept so the delete can be
// retried.
// DELETE /api/v1/admin/reports/:id
func (ac *AdminController) HandleDeleteReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id := c.Params("id")

	report, err := ac.reports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return errorJSON(c, fiber.StatusNotFound, ErrCodeNotFound, "report not found")
		}
		fiberlog.Errorf("[Admin] Loading report %s failed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, ErrCodeInternal, "could not load report")
	}

	if report.ImageKey != "" {
		if err := ac.store.Delete(ctx, report.ImageKey); err != nil {
			fiberlog.Errorf("[Admin] Deleting object %s of report %s failed: %v", report.ImageKey, id, err)
			return errorJSON(c, fiber.StatusBadGateway, "object_delete_failed", "could not delete the stored image")
		}
	}

	if err := ac.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return c.SendStatus(fiber.StatusNoContent)
		}
		fiberlog.Errorf("[Admin] Deleting report %s failed after its object was removed: %v", id, err)
		return errorJSON(c, fiber.StatusInternalServerError, ErrCodeInternal, "could not delete report")
	}

	fiberlog.Infof("[Admin] Deleted report %s and object %s", id, report.ImageKey)
	return c.SendStatus(fiber.StatusNoContent)
}
