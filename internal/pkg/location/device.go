package location

import (
	"context"
	"errors"
	"fmt"

	"github.com/trashmap/trashmap-api/app/models"
)

// ErrPositionDenied is reported when the device refused or failed to
// produce a fix.
var ErrPositionDenied = errors.New("device position denied")

// DevicePositionProvider yields the submitter's live position.
type DevicePositionProvider interface {
	Position(ctx context.Context) (models.Coordinate, error)
}

// ReportedPosition is a position the client already obtained, or the reason
// it could not. Browsers send it alongside the upload.
type ReportedPosition struct {
	Coordinate *models.Coordinate
	Reason     string
}

func (p ReportedPosition) Position(ctx context.Context) (models.Coordinate, error) {
	if p.Coordinate != nil {
		return *p.Coordinate, nil
	}
	if p.Reason != "" {
		return models.Coordinate{}, fmt.Errorf("%w: %s", ErrPositionDenied, p.Reason)
	}
	return models.Coordinate{}, ErrPositionDenied
}

// PositionFunc adapts a function to DevicePositionProvider.
type PositionFunc func(ctx context.Context) (models.Coordinate, error)

func (f PositionFunc) Position(ctx context.Context) (models.Coordinate, error) {
	return f(ctx)
}
