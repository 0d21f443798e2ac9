package jobqueue

import (
	"context"
	"fmt"

	"github.com/trashmap/trashmap-api/internal/pkg/notify"
)

// Deliverer sends a notification payload now.
type Deliverer interface {
	Deliver(ctx context.Context, p notify.Payload) error
}

// EnqueueNotification queues p for background delivery.
func (q *Queue) EnqueueNotification(ctx context.Context, p notify.Payload) error {
	_, err := q.EnqueueJob(ctx, JobTypeAssistanceNotification, NewAssistanceNotificationPayload(p).ToMap())
	return err
}

// NotificationHandler delivers queued assistance notifications through d.
func NotificationHandler(d Deliverer) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := AssistanceNotificationPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid notification payload: %w", err)
		}
		return d.Deliver(ctx, payload.ToNotifyPayload())
	}
}

var _ notify.Enqueuer = (*Queue)(nil)
