package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SeverityMin = 1
	SeverityMax = 5
)

// ErrInvalidSeverity is returned for severity levels outside 1..5.
var ErrInvalidSeverity = errors.New("severity level must be between 1 and 5")

// Jurisdiction is the reverse-geocoded administrative area of a report.
type Jurisdiction struct {
	Region    string `json:"region" bson:"region"`
	Subregion string `json:"subregion" bson:"subregion"`
}

// Key returns the "region_subregion" directory key, or just the region
// when the subregion is unknown.
func (j Jurisdiction) Key() string {
	region := strings.TrimSpace(j.Region)
	sub := strings.TrimSpace(j.Subregion)
	if sub == "" {
		return region
	}
	return region + "_" + sub
}

// AssistanceRequest is present when the submitter opted in to be contacted.
type AssistanceRequest struct {
	ContactEmail string `json:"contact_email" validate:"required,email,max=255"`
	ContactPhone string `json:"contact_phone" validate:"required,min=3,max=50"`
}

// AuthorityContact is the responsible authority for a jurisdiction.
type AuthorityContact struct {
	Name  string `json:"name" yaml:"name"`
	Phone string `json:"phone" yaml:"phone"`
}

// Report is a committed waste hotspot report. Jurisdiction and contact
// details are stored flat so the same shape works for SQL and documents.
type Report struct {
	ID             string         `gorm:"type:char(36);primaryKey" bson:"_id" json:"id"`
	ImageRef       string         `gorm:"type:varchar(1024);not null" bson:"image_ref" json:"image_ref"`
	ImageKey       string         `gorm:"type:varchar(512);not null;index" bson:"image_key" json:"image_key"`
	Latitude       float64        `gorm:"type:decimal(10,8);not null" bson:"lat" json:"lat"`
	Longitude      float64        `gorm:"type:decimal(11,8);not null" bson:"lng" json:"lng"`
	LocationSource LocationSource `gorm:"type:varchar(20);not null" bson:"location_source" json:"location_source"`
	SeverityLevel  int            `gorm:"type:tinyint;not null" bson:"severity_level" json:"severity_level"`
	Description    string         `gorm:"type:text" bson:"description,omitempty" json:"description,omitempty"`
	CapturedAt     *time.Time     `gorm:"type:datetime" bson:"captured_at,omitempty" json:"captured_at,omitempty"`
	SubmittedAt    time.Time      `gorm:"type:datetime;not null;index" bson:"submitted_at" json:"submitted_at"`
	Region         *string        `gorm:"type:varchar(255)" bson:"region,omitempty" json:"region,omitempty"`
	Subregion      *string        `gorm:"type:varchar(255)" bson:"subregion,omitempty" json:"subregion,omitempty"`
	ContactEmail   *string        `gorm:"type:varchar(255)" bson:"contact_email,omitempty" json:"-"`
	ContactPhone   *string        `gorm:"type:varchar(50)" bson:"contact_phone,omitempty" json:"-"`
}

func (Report) TableName() string {
	return "reports"
}

// Coordinate returns the report position.
func (r *Report) Coordinate() Coordinate {
	return Coordinate{Lat: r.Latitude, Lng: r.Longitude}
}

// Jurisdiction returns nil when no jurisdiction was derived.
func (r *Report) Jurisdiction() *Jurisdiction {
	if r.Region == nil {
		return nil
	}
	j := Jurisdiction{Region: *r.Region}
	if r.Subregion != nil {
		j.Subregion = *r.Subregion
	}
	return &j
}

// SetJurisdiction copies j into the flat columns; nil clears them.
func (r *Report) SetJurisdiction(j *Jurisdiction) {
	if j == nil {
		r.Region, r.Subregion = nil, nil
		return
	}
	region, sub := j.Region, j.Subregion
	r.Region = &region
	if sub != "" {
		r.Subregion = &sub
	} else {
		r.Subregion = nil
	}
}

// AssistanceRequest returns nil unless the submitter opted in.
func (r *Report) AssistanceRequest() *AssistanceRequest {
	if r.ContactEmail == nil {
		return nil
	}
	a := AssistanceRequest{ContactEmail: *r.ContactEmail}
	if r.ContactPhone != nil {
		a.ContactPhone = *r.ContactPhone
	}
	return &a
}

// Validate enforces the invariants every persisted report must hold.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("report id is empty")
	}
	if strings.TrimSpace(r.ImageRef) == "" {
		return errors.New("report has no image reference")
	}
	if err := r.Coordinate().Validate(); err != nil {
		return err
	}
	if !r.LocationSource.IsValid() {
		return fmt.Errorf("invalid location source %q", r.LocationSource)
	}
	if r.SeverityLevel < SeverityMin || r.SeverityLevel > SeverityMax {
		return ErrInvalidSeverity
	}
	return nil
}
