package controllers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/submission"
)

// Error codes returned in the "error" field of JSON error bodies.
const (
	ErrCodeValidation     = "validation_failed"
	ErrCodeManualRequired = "manual_input_required"
	ErrCodeUploadFailed   = "upload_failed"
	ErrCodePersistFailed  = "persist_failed"
	ErrCodeNotFound       = "not_found"
	ErrCodeCancelled      = "request_cancelled"
	ErrCodeInternal       = "internal_error"
)

func errorJSON(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

// submissionErrorStatus maps a pipeline error to its HTTP status and code.
func submissionErrorStatus(err error) (int, string) {
	var (
		uploadErr  *submission.UploadError
		persistErr *submission.PersistError
	)
	switch {
	case errors.Is(err, location.ErrManualInputRequired):
		return fiber.StatusUnprocessableEntity, ErrCodeManualRequired
	case errors.As(err, &uploadErr):
		return fiber.StatusBadGateway, ErrCodeUploadFailed
	case errors.As(err, &persistErr):
		return fiber.StatusInternalServerError, ErrCodePersistFailed
	case submission.IsInvalid(err), errors.Is(err, models.ErrCoordinateOutOfRange):
		return fiber.StatusBadRequest, ErrCodeValidation
	case errors.Is(err, repository.ErrReportNotFound):
		return fiber.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusRequestTimeout, ErrCodeCancelled
	default:
		return fiber.StatusInternalServerError, ErrCodeInternal
	}
}

func handleSubmissionError(c *fiber.Ctx, err error) error {
	status, code := submissionErrorStatus(err)
	msg := err.Error()
	switch code {
	case ErrCodeManualRequired:
		msg = "no location could be determined; resubmit with manual_lat and manual_lng"
	case ErrCodeInternal:
		fiberlog.Errorf("[API] Submission failed: %v", err)
		msg = "internal error"
	}
	return errorJSON(c, status, code, msg)
}

// formFloat parses an optional float form field. ok is false when the field
// is absent.
func formFloat(c *fiber.Ctx, name string) (v float64, ok bool, err error) {
	raw := strings.TrimSpace(c.FormValue(name))
	if raw == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, errors.New(name + " is not a number")
	}
	return v, true, nil
}

// formCoordinate reads a lat/lng pair. Both or neither must be present.
func formCoordinate(c *fiber.Ctx, latField, lngField string) (*models.Coordinate, error) {
	lat, hasLat, err := formFloat(c, latField)
	if err != nil {
		return nil, err
	}
	lng, hasLng, err := formFloat(c, lngField)
	if err != nil {
		return nil, err
	}
	if !hasLat && !hasLng {
		return nil, nil
	}
	if hasLat != hasLng {
		return nil, errors.New(latField + " and " + lngField + " must be sent together")
	}

	coord := models.Coordinate{Lat: lat, Lng: lng}
	if err := coord.Validate(); err != nil {
		return nil, err
	}
	return &coord, nil
}

func formBool(c *fiber.Ctx, name string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(c.FormValue(name)))
	return err == nil && v
}
