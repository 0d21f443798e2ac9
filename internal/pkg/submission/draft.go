// Package submission turns a photo and its location inputs into a committed
// report: resolve, upload, commit, then the optional follow-ups.
package submission

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

const MaxDescriptionLength = 2000

var validate = validator.New()

// Binary is the uploaded photo.
type Binary struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Ext returns the object extension, preferring the detected content type.
func (b Binary) Ext() string {
	if ext := storage.ExtForContentType(b.ContentType); ext != "" {
		return ext
	}
	return strings.ToLower(filepath.Ext(b.Filename))
}

func (b Binary) Size() int64 {
	return int64(len(b.Data))
}

// Draft is a report under construction. Every transition returns a new
// value; the receiver is never modified.
type Draft struct {
	severity    int
	description string
	assistance  *models.AssistanceRequest
	resolution  *location.Resolution
	image       *storage.StoredObject
}

// NewDraft validates the submitter's fields.
func NewDraft(severity int, description string, assistance *models.AssistanceRequest) (Draft, error) {
	if severity < models.SeverityMin || severity > models.SeverityMax {
		return Draft{}, invalid("%v", models.ErrInvalidSeverity)
	}
	description = strings.TrimSpace(description)
	if len(description) > MaxDescriptionLength {
		return Draft{}, invalid("description longer than %d bytes", MaxDescriptionLength)
	}

	var req *models.AssistanceRequest
	if assistance != nil {
		a := models.AssistanceRequest{
			ContactEmail: strings.TrimSpace(assistance.ContactEmail),
			ContactPhone: strings.TrimSpace(assistance.ContactPhone),
		}
		if err := validate.Struct(a); err != nil {
			return Draft{}, invalid("contact details: %v", err)
		}
		req = &a
	}

	return Draft{severity: severity, description: description, assistance: req}, nil
}

func (d Draft) Severity() int {
	return d.severity
}

func (d Draft) Description() string {
	return d.description
}

// Assistance is nil unless the submitter opted in.
func (d Draft) Assistance() *models.AssistanceRequest {
	if d.assistance == nil {
		return nil
	}
	a := *d.assistance
	return &a
}

func (d Draft) Resolution() (location.Resolution, bool) {
	if d.resolution == nil {
		return location.Resolution{}, false
	}
	return *d.resolution, true
}

func (d Draft) Image() (storage.StoredObject, bool) {
	if d.image == nil {
		return storage.StoredObject{}, false
	}
	return *d.image, true
}

func (d Draft) Resolved() bool {
	return d.resolution != nil
}

func (d Draft) WithResolution(res location.Resolution) Draft {
	d.resolution = &res
	return d
}

func (d Draft) WithImage(obj storage.StoredObject) Draft {
	d.image = &obj
	return d
}

// Validate checks everything Report checks except the image reference, so
// a draft that could never be committed is rejected before its upload.
func (d Draft) Validate() error {
	if d.resolution == nil {
		return invalid("no resolved location")
	}
	if err := d.record("pending", "pending", time.Time{}).Validate(); err != nil {
		return invalid("%v", err)
	}
	return nil
}

// Report builds the record to commit. It fails unless the draft carries
// both a valid coordinate and an image reference.
func (d Draft) Report(id string, submittedAt time.Time) (*models.Report, error) {
	if d.resolution == nil {
		return nil, invalid("no resolved location")
	}
	if d.image == nil || d.image.URL == "" {
		return nil, invalid("no stored image")
	}

	r := d.record(id, d.image.URL, submittedAt)
	r.ImageKey = d.image.Key
	if err := r.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	return r, nil
}

func (d Draft) record(id, imageRef string, submittedAt time.Time) *models.Report {
	r := &models.Report{
		ID:             id,
		ImageRef:       imageRef,
		Latitude:       d.resolution.Coordinate.Lat,
		Longitude:      d.resolution.Coordinate.Lng,
		LocationSource: d.resolution.Source,
		SeverityLevel:  d.severity,
		Description:    d.description,
		SubmittedAt:    submittedAt.UTC(),
	}
	if d.resolution.CapturedAt != nil {
		at := d.resolution.CapturedAt.UTC()
		r.CapturedAt = &at
	}
	if d.assistance != nil {
		email, phone := d.assistance.ContactEmail, d.assistance.ContactPhone
		r.ContactEmail = &email
		r.ContactPhone = &phone
	}
	return r
}
