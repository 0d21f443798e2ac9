package submission

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

const (
	WarningJurisdiction = "jurisdiction_unavailable"
	WarningNotification = "notification_failed"
)

type LocationResolver interface {
	Resolve(ctx context.Context, in location.Input) (location.Resolution, error)
}

type AuthorityLookup interface {
	Lookup(ctx context.Context, c models.Coordinate) (models.AuthorityContact, *models.Jurisdiction)
}

type SourceCounter interface {
	Add(ctx context.Context, source models.LocationSource) error
}

type Notifier interface {
	Notify(ctx context.Context, r models.Report, req models.AssistanceRequest) error
}

// Submission is one request to the pipeline. Location.Image is filled from
// Binary.
type Submission struct {
	Binary   Binary
	Draft    Draft
	Location location.Input
	Progress storage.ProgressFunc
}

// Warning is a non-fatal problem after the report was committed.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Outcome is the committed report plus whatever the follow-ups produced.
type Outcome struct {
	Report    *models.Report
	Authority *models.AuthorityContact
	Warnings  []Warning
}

// Deps wires the pipeline. Authority, Counter and Notifier are optional.
type Deps struct {
	Resolver    LocationResolver
	Coordinator *Coordinator
	Reports     repository.ReportRepository
	Authority   AuthorityLookup
	Counter     SourceCounter
	Notifier    Notifier
}

type Pipeline struct {
	deps Deps
}

func NewPipeline(deps Deps) *Pipeline {
	return &Pipeline{deps: deps}
}

// Process runs resolve, upload and commit. Errors from those steps abort the
// submission; everything after the commit only adds warnings.
func (p *Pipeline) Process(ctx context.Context, sub Submission) (*Outcome, error) {
	if len(sub.Binary.Data) == 0 {
		return nil, invalid("empty image")
	}

	in := sub.Location
	in.Image = sub.Binary.Data
	if in.Hint == "" {
		in.Hint = sub.Draft.Description()
	}

	res, err := p.deps.Resolver.Resolve(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := res.Coordinate.Validate(); err != nil {
		return nil, invalid("resolved coordinate: %v", err)
	}
	draft := sub.Draft.WithResolution(res)

	report, err := p.deps.Coordinator.Submit(ctx, sub.Binary, draft, sub.Progress)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Report: report}
	p.attachAuthority(ctx, out)

	if p.deps.Counter != nil {
		if err := p.deps.Counter.Add(ctx, report.LocationSource); err != nil {
			log.Warnf("[Pipeline] Could not count report %s: %v", report.ID, err)
		}
	}

	if req := draft.Assistance(); req != nil && p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, *report, *req); err != nil {
			out.Warnings = append(out.Warnings, Warning{Code: WarningNotification, Message: err.Error()})
		}
	}

	return out, nil
}

func (p *Pipeline) attachAuthority(ctx context.Context, out *Outcome) {
	if p.deps.Authority == nil {
		return
	}
	report := out.Report

	contact, j := p.deps.Authority.Lookup(ctx, report.Coordinate())
	out.Authority = &contact
	if j == nil {
		out.Warnings = append(out.Warnings, Warning{Code: WarningJurisdiction, Message: "no jurisdiction for the resolved location"})
		return
	}

	if err := p.deps.Reports.AttachJurisdiction(ctx, report.ID, j); err != nil {
		log.Warnf("[Pipeline] Could not attach jurisdiction to report %s: %v", report.ID, err)
		out.Warnings = append(out.Warnings, Warning{Code: WarningJurisdiction, Message: fmt.Sprintf("jurisdiction not saved: %v", err)})
		return
	}
	report.SetJurisdiction(j)
}

// IsInvalid reports whether err was raised before any remote write.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidSubmission)
}
