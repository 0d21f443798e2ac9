package controllers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/progress"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
	"github.com/trashmap/trashmap-api/internal/pkg/submission"
	"github.com/trashmap/trashmap-api/internal/pkg/upload"
)

// HeaderUploadID lets a client poll the progress of its own upload.
const HeaderUploadID = "X-Upload-ID"

// Processor runs one submission end to end.
type Processor interface {
	Process(ctx context.Context, sub submission.Submission) (*submission.Outcome, error)
}

// ProgressTracker publishes upload progress for polling.
type ProgressTracker interface {
	Start(ctx context.Context, id string) error
	Stored(ctx context.Context, id string) error
	Committed(ctx context.Context, id, reportID string) error
	Failed(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*progress.Status, error)
	Reporter(ctx context.Context, id string) storage.ProgressFunc
}

// ReportController serves the public report API.
type ReportController struct {
	pipeline       Processor
	reports        repository.ReportRepository
	tracker        ProgressTracker
	maxUploadBytes int64
}

// NewReportController wires the public handlers. tracker may be nil, in
// which case X-Upload-ID is ignored and progress polling is unavailable.
func NewReportController(pipeline Processor, reports repository.ReportRepository, tracker ProgressTracker, maxUploadBytes int64) *ReportController {
	return &ReportController{
		pipeline:       pipeline,
		reports:        reports,
		tracker:        tracker,
		maxUploadBytes: maxUploadBytes,
	}
}

type submitResponse struct {
	Report    *models.Report           `json:"report"`
	Authority *models.AuthorityContact `json:"authority,omitempty"`
	Warnings  []submission.Warning     `json:"warnings"`
}

// HandleSubmit accepts a multipart report submission.
// POST /api/v1/reports
func (rc *ReportController) HandleSubmit(c *fiber.Ctx) error {
	bin, err := rc.readImage(c)
	if err != nil {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return errorJSON(c, fe.Code, ErrCodeValidation, fe.Message)
		}
		return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, err.Error())
	}

	severity, err := strconv.Atoi(strings.TrimSpace(c.FormValue("severity")))
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, "severity must be an integer between 1 and 5")
	}

	var assistance *models.AssistanceRequest
	if formBool(c, "request_assistance") || strings.TrimSpace(c.FormValue("contact_email")) != "" {
		assistance = &models.AssistanceRequest{
			ContactEmail: c.FormValue("contact_email"),
			ContactPhone: c.FormValue("contact_phone"),
		}
	}

	draft, err := submission.NewDraft(severity, c.FormValue("description"), assistance)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, err.Error())
	}

	in, err := locationInput(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, err.Error())
	}

	ctx := c.UserContext()
	sub := submission.Submission{Binary: bin, Draft: draft, Location: in}

	uploadID := strings.TrimSpace(c.Get(HeaderUploadID))
	if uploadID != "" && rc.tracker != nil {
		if !progress.ValidID(uploadID) {
			return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, "invalid "+HeaderUploadID)
		}
		if err := rc.tracker.Start(ctx, uploadID); err != nil {
			fiberlog.Warnf("[API] Could not start progress for %s: %v", uploadID, err)
		}
		sub.Progress = rc.progressFunc(ctx, uploadID)
	}

	out, err := rc.pipeline.Process(ctx, sub)
	if err != nil {
		if uploadID != "" && rc.tracker != nil {
			_ = rc.tracker.Failed(ctx, uploadID)
		}
		return handleSubmissionError(c, err)
	}

	if uploadID != "" && rc.tracker != nil {
		if err := rc.tracker.Committed(ctx, uploadID, out.Report.ID); err != nil {
			fiberlog.Warnf("[API] Could not publish commit for %s: %v", uploadID, err)
		}
	}

	warnings := out.Warnings
	if warnings == nil {
		warnings = []submission.Warning{}
	}
	return c.Status(fiber.StatusCreated).JSON(submitResponse{
		Report:    out.Report,
		Authority: out.Authority,
		Warnings:  warnings,
	})
}

// progressFunc publishes percentages. The coordinator reports 100 only after
// the object store confirmed the upload, which marks the entry stored.
func (rc *ReportController) progressFunc(ctx context.Context, id string) storage.ProgressFunc {
	report := rc.tracker.Reporter(ctx, id)
	return func(percent int) {
		if percent >= 100 {
			if err := rc.tracker.Stored(ctx, id); err != nil {
				fiberlog.Debugf("[API] Could not mark %s stored: %v", id, err)
			}
			return
		}
		report(percent)
	}
}

// readImage returns a *fiber.Error describing why the upload is unusable.
func (rc *ReportController) readImage(c *fiber.Ctx) (submission.Binary, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return submission.Binary{}, fiber.NewError(fiber.StatusBadRequest, "image file is required")
	}
	if rc.maxUploadBytes > 0 && fh.Size > rc.maxUploadBytes {
		return submission.Binary{}, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("image exceeds %d bytes", rc.maxUploadBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return submission.Binary{}, fiber.NewError(fiber.StatusBadRequest, "could not read image")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return submission.Binary{}, fiber.NewError(fiber.StatusBadRequest, "could not read image")
	}
	if len(data) == 0 {
		return submission.Binary{}, fiber.NewError(fiber.StatusBadRequest, "image is empty")
	}

	head := data
	if len(head) > upload.SniffLen {
		head = head[:upload.SniffLen]
	}
	contentType, err := upload.ValidateImageBySniff(fh.Filename, head)
	if err != nil {
		return submission.Binary{}, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	return submission.Binary{Data: data, Filename: fh.Filename, ContentType: contentType}, nil
}

// locationInput collects the optional hint, device fix and manual pick.
func locationInput(c *fiber.Ctx) (location.Input, error) {
	in := location.Input{Hint: strings.TrimSpace(c.FormValue("hint"))}

	device, err := formCoordinate(c, "device_lat", "device_lng")
	if err != nil {
		return in, fmt.Errorf("device position: %w", err)
	}
	if device != nil {
		in.Device = location.ReportedPosition{Coordinate: device}
	} else if reason := strings.TrimSpace(c.FormValue("device_error")); reason != "" {
		in.Device = location.ReportedPosition{Reason: reason}
	}

	manual, err := formCoordinate(c, "manual_lat", "manual_lng")
	if err != nil {
		return in, fmt.Errorf("manual position: %w", err)
	}
	if manual != nil {
		pick, err := location.ManualPickAt(*manual)
		if err != nil {
			return in, fmt.Errorf("manual position: %w", err)
		}
		in.Manual = pick
	}
	return in, nil
}

// HandleList returns reports for the map, newest first.
// GET /api/v1/reports?limit=&since=
func (rc *ReportController) HandleList(c *fiber.Ctx) error {
	var opts repository.ListOptions
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, "limit must be a positive integer")
		}
		opts.Limit = limit
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, "since must be an RFC 3339 timestamp")
		}
		opts.Since = &since
	}

	reports, err := rc.reports.List(c.UserContext(), opts)
	if err != nil {
		fiberlog.Errorf("[API] Listing reports failed: %v", err)
		return errorJSON(c, fiber.StatusInternalServerError, ErrCodeInternal, "could not list reports")
	}
	if reports == nil {
		reports = []models.Report{}
	}
	return c.JSON(fiber.Map{
		"reports": reports,
		"count":   len(reports),
	})
}

// HandleGet returns a single report.
// GET /api/v1/reports/:id
func (rc *ReportController) HandleGet(c *fiber.Ctx) error {
	report, err := rc.reports.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, repository.ErrReportNotFound) {
			return errorJSON(c, fiber.StatusNotFound, ErrCodeNotFound, "report not found")
		}
		fiberlog.Errorf("[API] Loading report %s failed: %v", c.Params("id"), err)
		return errorJSON(c, fiber.StatusInternalServerError, ErrCodeInternal, "could not load report")
	}
	return c.JSON(report)
}

// HandleProgress returns the published progress of an upload.
// GET /api/v1/uploads/:id/progress
func (rc *ReportController) HandleProgress(c *fiber.Ctx) error {
	if rc.tracker == nil {
		return errorJSON(c, fiber.StatusServiceUnavailable, "progress_unavailable", "upload progress is not tracked")
	}

	status, err := rc.tracker.Get(c.UserContext(), c.Params("id"))
	switch {
	case errors.Is(err, progress.ErrInvalidID):
		return errorJSON(c, fiber.StatusBadRequest, ErrCodeValidation, "invalid upload id")
	case errors.Is(err, progress.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, ErrCodeNotFound, "unknown or expired upload id")
	case err != nil:
		fiberlog.Errorf("[API] Reading progress for %s failed: %v", c.Params("id"), err)
		return errorJSON(c, fiber.StatusInternalServerError, ErrCodeInternal, "could not read progress")
	}
	return c.JSON(status)
}
