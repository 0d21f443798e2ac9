package controllers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/progress"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
	"github.com/trashmap/trashmap-api/internal/pkg/submission"
)

type fakeProcessor struct {
	got *submission.Submission
	out *submission.Outcome
	err error
}

func (f *fakeProcessor) Process(_ context.Context, sub submission.Submission) (*submission.Outcome, error) {
	f.got = &sub
	if sub.Progress != nil {
		sub.Progress(40)
		sub.Progress(100)
	}
	return f.out, f.err
}

type memReports struct {
	reports   map[string]models.Report
	listOpts  repository.ListOptions
	listErr   error
	deleteErr error
	deleted   []string
}

func newMemReports(rs ...models.Report) *memReports {
	m := &memReports{reports: make(map[string]models.Report)}
	for _, r := range rs {
		m.reports[r.ID] = r
	}
	return m
}

func (m *memReports) Create(_ context.Context, r *models.Report) error {
	m.reports[r.ID] = *r
	return nil
}

func (m *memReports) AttachJurisdiction(context.Context, string, *models.Jurisdiction) error {
	return nil
}

func (m *memReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	r, ok := m.reports[id]
	if !ok {
		return nil, repository.ErrReportNotFound
	}
	return &r, nil
}

func (m *memReports) List(_ context.Context, opts repository.ListOptions) ([]models.Report, error) {
	m.listOpts = opts
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	return out, nil
}

func (m *memReports) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.reports[id]; !ok {
		return repository.ErrReportNotFound
	}
	delete(m.reports, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type fakeStore struct {
	deleteErr error
	deleted   []string
}

func (f *fakeStore) Put(context.Context, storage.PutInput) (storage.StoredObject, error) {
	return storage.StoredObject{}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeTracker struct {
	mu       sync.Mutex
	events   []string
	statuses map[string]*progress.Status
}

func (f *fakeTracker) record(e string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeTracker) Start(_ context.Context, id string) error {
	f.record("start:" + id)
	return nil
}

func (f *fakeTracker) Stored(_ context.Context, id string) error {
	f.record("stored:" + id)
	return nil
}

func (f *fakeTracker) Committed(_ context.Context, id, reportID string) error {
	f.record("committed:" + id + ":" + reportID)
	return nil
}

func (f *fakeTracker) Failed(_ context.Context, id string) error {
	f.record("failed:" + id)
	return nil
}

func (f *fakeTracker) Get(_ context.Context, id string) (*progress.Status, error) {
	if !progress.ValidID(id) {
		return nil, progress.ErrInvalidID
	}
	s, ok := f.statuses[id]
	if !ok {
		return nil, progress.ErrNotFound
	}
	return s, nil
}

func (f *fakeTracker) Reporter(_ context.Context, id string) storage.ProgressFunc {
	return func(p int) {
		f.record("update:" + id)
	}
}

type fakeSnapshot struct {
	counts map[models.LocationSource]int64
	err    error
}

func (f fakeSnapshot) Snapshot(context.Context) (map[models.LocationSource]int64, error) {
	return f.counts, f.err
}

var pngHeader = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 64)...)

// multipartRequest builds a submission request. A nil image omits the file.
func multipartRequest(t *testing.T, filename string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		fw, err := w.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = fw.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}
