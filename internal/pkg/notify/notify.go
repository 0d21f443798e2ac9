// Package notify delivers the optional assistance request to the operator.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2/log"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

// ErrDisabled is returned by Deliver when no sender is configured.
var ErrDisabled = errors.New("notifications are disabled")

// NotificationError wraps any failure to hand an assistance request off.
// It never affects the committed report.
type NotificationError struct {
	ReportID string
	Mode     string
	Err      error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification for report %s (%s) failed: %v", e.ReportID, e.Mode, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}

// Payload is the notification contract.
type Payload struct {
	ReportID      string            `json:"report_id"`
	ContactEmail  string            `json:"contact_email"`
	ContactPhone  string            `json:"contact_phone"`
	Coordinate    models.Coordinate `json:"coordinate"`
	SeverityLevel int               `json:"severity_level"`
	ImageRef      string            `json:"image_ref"`
	SubmittedAt   time.Time         `json:"submitted_at"`
}

// NewPayload builds the payload for a committed report.
func NewPayload(r models.Report, req models.AssistanceRequest) Payload {
	return Payload{
		ReportID:      r.ID,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Coordinate:    r.Coordinate(),
		SeverityLevel: r.SeverityLevel,
		ImageRef:      r.ImageRef,
		SubmittedAt:   r.SubmittedAt,
	}
}

// Sender delivers one message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Enqueuer hands a payload to background delivery.
type Enqueuer interface {
	EnqueueNotification(ctx context.Context, p Payload) error
}

// Dispatcher routes assistance requests according to NOTIFY_MODE.
type Dispatcher struct {
	mode     string
	operator string
	timeout  time.Duration
	sender   Sender
	queue    Enqueuer
	validate *validator.Validate
}

// NewDispatcher builds a dispatcher. sender is required for sync mode and
// for the queue worker; queue is required for queue mode.
func NewDispatcher(cfg config.NotifyConfig, sender Sender, queue Enqueuer) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Dispatcher{
		mode:     cfg.Mode,
		operator: cfg.OperatorEmail,
		timeout:  timeout,
		sender:   sender,
		queue:    queue,
		validate: validator.New(),
	}
}

// Enabled reports whether Notify will do anything.
func (d *Dispatcher) Enabled() bool {
	return d != nil && d.mode != config.NotifyOff && d.mode != ""
}

// Notify sends or enqueues the assistance request for a committed report.
func (d *Dispatcher) Notify(ctx context.Context, r models.Report, req models.AssistanceRequest) error {
	if !d.Enabled() {
		log.Debugf("[Notify] Notifications off, skipping report %s", r.ID)
		return nil
	}

	fail := func(err error) error {
		log.Warnf("[Notify] Assistance request for report %s not delivered: %v", r.ID, err)
		return &NotificationError{ReportID: r.ID, Mode: d.mode, Err: err}
	}

	if err := d.validate.Struct(req); err != nil {
		return fail(fmt.Errorf("invalid contact details: %w", err))
	}

	p := NewPayload(r, req)
	switch d.mode {
	case config.NotifySync:
		if err := d.Deliver(ctx, p); err != nil {
			return fail(err)
		}
	case config.NotifyQueue:
		if d.queue == nil {
			return fail(errors.New("no job queue configured"))
		}
		if err := d.queue.EnqueueNotification(ctx, p); err != nil {
			return fail(err)
		}
		log.Infof("[Notify] Queued assistance request for report %s", r.ID)
	default:
		return fail(fmt.Errorf("unknown notify mode %q", d.mode))
	}
	return nil
}

// Deliver sends the operator message now. The queue worker calls this too.
func (d *Dispatcher) Deliver(ctx context.Context, p Payload) error {
	if d.sender == nil {
		return ErrDisabled
	}
	msg, err := BuildMessage(d.operator, p)
	if err != nil {
		return err
	}

	sctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.sender.Send(sctx, msg); err != nil {
		return fmt.Errorf("send to operator: %w", err)
	}
	log.Infof("[Notify] Sent assistance request for report %s", p.ReportID)
	return nil
}
