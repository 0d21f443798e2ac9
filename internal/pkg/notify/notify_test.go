package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, m Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakeQueue struct {
	payloads []Payload
	err      error
}

func (f *fakeQueue) EnqueueNotification(_ context.Context, p Payload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func testReport() models.Report {
	return models.Report{
		ID:             "8a0c1c7e-6a53-4a43-9d39-2d0f3f1f7a11",
		ImageRef:       "https://cdn.example.com/reports/2026/10/8a0c.jpg",
		ImageKey:       "reports/2026/10/8a0c.jpg",
		Latitude:       25.033964,
		Longitude:      121.564468,
		LocationSource: models.LocationSourceEXIF,
		SeverityLevel:  4,
		SubmittedAt:    time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC),
	}
}

func testRequest() models.AssistanceRequest {
	return models.AssistanceRequest{ContactEmail: "alice@example.com", ContactPhone: "0912345678"}
}

func testNotifyConfig(mode string) config.NotifyConfig {
	return config.NotifyConfig{Mode: mode, OperatorEmail: "ops@example.com", Timeout: time.Second}
}

func TestDispatcherSync(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(testNotifyConfig(config.NotifySync), sender, nil)
	require.True(t, d.Enabled())

	err := d.Notify(context.Background(), testReport(), testRequest())
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, "ops@example.com", msg.To)
	assert.Equal(t, "alice@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Subject, "severity 4")
	assert.Contains(t, msg.Text, "8a0c1c7e-6a53-4a43-9d39-2d0f3f1f7a11")
	assert.Contains(t, msg.Text, "0912345678")
	assert.Contains(t, msg.Text, "25.033964, 121.564468")
	assert.Contains(t, msg.HTML, "https://cdn.example.com/reports/2026/10/8a0c.jpg")
}

func TestDispatcherQueue(t *testing.T) {
	q := &fakeQueue{}
	sender := &fakeSender{}
	d := NewDispatcher(testNotifyConfig(config.NotifyQueue), sender, q)

	require.NoError(t, d.Notify(context.Background(), testReport(), testRequest()))
	assert.Empty(t, sender.sent)
	require.Len(t, q.payloads, 1)

	p := q.payloads[0]
	assert.Equal(t, "8a0c1c7e-6a53-4a43-9d39-2d0f3f1f7a11", p.ReportID)
	assert.Equal(t, "alice@example.com", p.ContactEmail)
	assert.Equal(t, "0912345678", p.ContactPhone)
	assert.Equal(t, 4, p.SeverityLevel)
	assert.Equal(t, models.Coordinate{Lat: 25.033964, Lng: 121.564468}, p.Coordinate)
}

func TestDispatcherOff(t *testing.T) {
	sender := &fakeSender{}
	d := NewDispatcher(testNotifyConfig(config.NotifyOff), sender, nil)
	assert.False(t, d.Enabled())
	assert.NoError(t, d.Notify(context.Background(), testReport(), testRequest()))
	assert.Empty(t, sender.sent)

	var nilDispatcher *Dispatcher
	assert.False(t, nilDispatcher.Enabled())
	assert.NoError(t, nilDispatcher.Notify(context.Background(), testReport(), testRequest()))
}

func TestDispatcherFailures(t *testing.T) {
	sendErr := errors.New("connection refused")
	queueErr := errors.New("redis down")

	tests := []struct {
		name    string
		mode    string
		sender  Sender
		queue   Enqueuer
		req     models.AssistanceRequest
		wantErr error
	}{
		{name: "send fails", mode: config.NotifySync, sender: &fakeSender{err: sendErr}, req: testRequest(), wantErr: sendErr},
		{name: "enqueue fails", mode: config.NotifyQueue, queue: &fakeQueue{err: queueErr}, req: testRequest(), wantErr: queueErr},
		{name: "no sender", mode: config.NotifySync, req: testRequest(), wantErr: ErrDisabled},
		{name: "no queue", mode: config.NotifyQueue, req: testRequest()},
		{name: "invalid email", mode: config.NotifySync, sender: &fakeSender{}, req: models.AssistanceRequest{ContactEmail: "nope", ContactPhone: "0912345678"}},
		{name: "missing phone", mode: config.NotifySync, sender: &fakeSender{}, req: models.AssistanceRequest{ContactEmail: "alice@example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(testNotifyConfig(tt.mode), tt.sender, tt.queue)
			err := d.Notify(context.Background(), testReport(), tt.req)
			require.Error(t, err)

			var nerr *NotificationError
			require.ErrorAs(t, err, &nerr)
			assert.Equal(t, "8a0c1c7e-6a53-4a43-9d39-2d0f3f1f7a11", nerr.ReportID)
			assert.Equal(t, tt.mode, nerr.Mode)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestBuildMessageRequiresOperator(t *testing.T) {
	_, err := BuildMessage("  ", NewPayload(testReport(), testRequest()))
	assert.Error(t, err)
}

func TestBuildMessageEscapesHTML(t *testing.T) {
	p := NewPayload(testReport(), testRequest())
	p.ContactPhone = "<script>alert(1)</script>"

	msg, err := BuildMessage("ops@example.com", p)
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.Text, "<script>")
}

func TestMapURL(t *testing.T) {
	p := Payload{Coordinate: models.Coordinate{Lat: 25.5, Lng: -121.25}}
	assert.Equal(t, "https://www.openstreetmap.org/?mlat=25.500000&mlon=-121.250000#map=18/25.500000/-121.250000", MapURL(p))
}

func TestSMTPSenderCompose(t *testing.T) {
	s, err := NewSMTPSender(config.NotifyConfig{
		SMTPHost: "smtp.example.com",
		SMTPPort: 2525,
		From:     "trashmap@example.com",
		Timeout:  time.Second,
	})
	require.NoError(t, err)

	msg, err := s.compose(Message{To: "ops@example.com", ReplyTo: "alice@example.com", Subject: "hi", Text: "body", HTML: "<p>body</p>"})
	require.NoError(t, err)
	assert.NotNil(t, msg)

	_, err = s.compose(Message{To: "not an address", Subject: "hi", Text: "body"})
	assert.Error(t, err)
}
