package jobqueue

import (
	"encoding/json"
	"time"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/notify"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeAssistanceNotification JobType = "assistance_notification"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job represents a background job
type Job struct {
	ID          string                 `json:"id"`
	Type        JobType                `json:"type"`
	Status      JobStatus              `json:"status"`
	Payload     map[string]interface{} `json:"payload"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
	ProcessedAt *time.Time             `json:"processed_at,omitempty"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
	ErrorMsg    string                 `json:"error_msg,omitempty"`
	RetryCount  int                    `json:"retry_count"`
	MaxRetries  int                    `json:"max_retries"`
}

// AssistanceNotificationPayload carries one operator notification
type AssistanceNotificationPayload struct {
	ReportID      string    `json:"report_id"`
	ContactEmail  string    `json:"contact_email"`
	ContactPhone  string    `json:"contact_phone"`
	Latitude      float64   `json:"lat"`
	Longitude     float64   `json:"lng"`
	SeverityLevel int       `json:"severity_level"`
	ImageRef      string    `json:"image_ref"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// NewAssistanceNotificationPayload flattens a notify payload for storage
func NewAssistanceNotificationPayload(p notify.Payload) AssistanceNotificationPayload {
	return AssistanceNotificationPayload{
		ReportID:      p.ReportID,
		ContactEmail:  p.ContactEmail,
		ContactPhone:  p.ContactPhone,
		Latitude:      p.Coordinate.Lat,
		Longitude:     p.Coordinate.Lng,
		SeverityLevel: p.SeverityLevel,
		ImageRef:      p.ImageRef,
		SubmittedAt:   p.SubmittedAt,
	}
}

// ToMap converts the payload to a map for storage
func (p AssistanceNotificationPayload) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"report_id":      p.ReportID,
		"contact_email":  p.ContactEmail,
		"contact_phone":  p.ContactPhone,
		"lat":            p.Latitude,
		"lng":            p.Longitude,
		"severity_level": p.SeverityLevel,
		"image_ref":      p.ImageRef,
		"submitted_at":   p.SubmittedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ToNotifyPayload converts back to the notification contract
func (p AssistanceNotificationPayload) ToNotifyPayload() notify.Payload {
	return notify.Payload{
		ReportID:      p.ReportID,
		ContactEmail:  p.ContactEmail,
		ContactPhone:  p.ContactPhone,
		Coordinate:    models.Coordinate{Lat: p.Latitude, Lng: p.Longitude},
		SeverityLevel: p.SeverityLevel,
		ImageRef:      p.ImageRef,
		SubmittedAt:   p.SubmittedAt,
	}
}

// AssistanceNotificationPayloadFromMap creates a payload from a map
func AssistanceNotificationPayloadFromMap(data map[string]interface{}) (*AssistanceNotificationPayload, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var payload AssistanceNotificationPayload
	err = json.Unmarshal(jsonData, &payload)
	return &payload, err
}

// IsRetryable checks if the job can be retried
func (j *Job) IsRetryable() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkAsProcessing updates the job status to processing
func (j *Job) MarkAsProcessing() {
	now := time.Now()
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.ProcessedAt = &now
}

// MarkAsCompleted updates the job status to completed
func (j *Job) MarkAsCompleted() {
	now := time.Now()
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.ErrorMsg = ""
}

// MarkAsFailed updates the job status to failed
func (j *Job) MarkAsFailed(errorMsg string) {
	j.Status = JobStatusFailed
	j.UpdatedAt = time.Now()
	j.ErrorMsg = errorMsg
	j.RetryCount++
}

// MarkAsRetrying updates the job status to retrying
func (j *Job) MarkAsRetrying() {
	j.Status = JobStatusRetrying
	j.UpdatedAt = time.Now()
}
