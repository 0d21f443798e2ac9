package repository

import (
	"context"
	"errors"
	"time"

	"github.com/trashmap/trashmap-api/app/models"
)

// ErrReportNotFound is returned when no report has the requested id.
var ErrReportNotFound = errors.New("report not found")

const (
	DefaultListLimit = 1000
	MaxListLimit     = 5000
)

// ReportRepository is the record store. Reports are only ever created,
// annotated with a jurisdiction, read, and deleted.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	AttachJurisdiction(ctx context.Context, id string, j *models.Jurisdiction) error
	GetByID(ctx context.Context, id string) (*models.Report, error)
	List(ctx context.Context, opts ListOptions) ([]models.Report, error)
	Delete(ctx context.Context, id string) error
}

// ListOptions filters List. Reports are returned newest first.
type ListOptions struct {
	Limit int
	Since *time.Time
}

// EffectiveLimit clamps Limit to 1..MaxListLimit, defaulting to DefaultListLimit.
func (o ListOptions) EffectiveLimit() int {
	switch {
	case o.Limit <= 0:
		return DefaultListLimit
	case o.Limit > MaxListLimit:
		return MaxListLimit
	default:
		return o.Limit
	}
}
