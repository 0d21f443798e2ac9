package submission

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/app/repository"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

// events records the order of remote calls across fakes.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, s)
}

func (e *events) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.log...)
}

type fakeStore struct {
	ev      *events
	err     error
	// readErr fails the Put after the whole body has been consumed.
	readErr error
	puts    []storage.PutInput
	bodies  [][]byte
	deleted []string
}

func (f *fakeStore) Put(_ context.Context, in storage.PutInput) (storage.StoredObject, error) {
	f.ev.add("put")
	if f.err != nil {
		return storage.StoredObject{}, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return storage.StoredObject{}, err
	}
	if f.readErr != nil {
		return storage.StoredObject{}, f.readErr
	}
	f.puts = append(f.puts, in)
	f.bodies = append(f.bodies, body)
	return storage.StoredObject{URL: "https://cdn.example.com/" + in.Key, Key: in.Key, Size: int64(len(body))}, nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.ev.add("delete")
	f.deleted = append(f.deleted, key)
	return nil
}

type fakeReports struct {
	ev        *events
	createErr error
	attachErr error
	created   []models.Report
	attached  map[string]models.Jurisdiction
}

func (f *fakeReports) Create(_ context.Context, r *models.Report) error {
	f.ev.add("create")
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, *r)
	return nil
}

func (f *fakeReports) AttachJurisdiction(_ context.Context, id string, j *models.Jurisdiction) error {
	f.ev.add("attach")
	if f.attachErr != nil {
		return f.attachErr
	}
	if f.attached == nil {
		f.attached = make(map[string]models.Jurisdiction)
	}
	f.attached[id] = *j
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, id string) (*models.Report, error) {
	for i := range f.created {
		if f.created[i].ID == id {
			r := f.created[i]
			return &r, nil
		}
	}
	return nil, repository.ErrReportNotFound
}

func (f *fakeReports) List(context.Context, repository.ListOptions) ([]models.Report, error) {
	return f.created, nil
}

func (f *fakeReports) Delete(context.Context, string) error {
	return nil
}

type fakeResolver struct {
	ev  *events
	res location.Resolution
	err error
	got location.Input
}

func (f *fakeResolver) Resolve(_ context.Context, in location.Input) (location.Resolution, error) {
	f.ev.add("resolve")
	f.got = in
	return f.res, f.err
}

type fakeAuthority struct {
	ev           *events
	contact      models.AuthorityContact
	jurisdiction *models.Jurisdiction
}

func (f *fakeAuthority) Lookup(context.Context, models.Coordinate) (models.AuthorityContact, *models.Jurisdiction) {
	f.ev.add("authority")
	return f.contact, f.jurisdiction
}

type fakeCounter struct {
	ev      *events
	sources []models.LocationSource
}

func (f *fakeCounter) Add(_ context.Context, s models.LocationSource) error {
	f.ev.add("count")
	f.sources = append(f.sources, s)
	return nil
}

type fakeNotifier struct {
	ev   *events
	err  error
	sent []models.AssistanceRequest
}

func (f *fakeNotifier) Notify(_ context.Context, _ models.Report, req models.AssistanceRequest) error {
	f.ev.add("notify")
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, req)
	return nil
}

var errBoom = errors.New("boom")

var fixedNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

func testCoordinator(store storage.ObjectStore, reports repository.ReportRepository) *Coordinator {
	c := NewCoordinator(store, reports, "trashmap-report")
	c.now = func() time.Time { return fixedNow }
	n := 0
	c.newID = func() string {
		n++
		return []string{"id-1", "id-2", "id-3"}[n-1]
	}
	return c
}
