package submission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/location"
	"github.com/trashmap/trashmap-api/internal/pkg/storage"
)

func TestNewDraftSeverityBound(t *testing.T) {
	tests := []struct {
		severity int
		wantErr  bool
	}{
		{0, true},
		{1, false},
		{3, false},
		{5, false},
		{6, true},
		{-1, true},
	}

	for _, tt := range tests {
		_, err := NewDraft(tt.severity, "", nil)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidSubmission, "severity %d", tt.severity)
			assert.True(t, IsInvalid(err))
		} else {
			assert.NoError(t, err, "severity %d", tt.severity)
		}
	}
}

func TestNewDraftAssistance(t *testing.T) {
	d, err := NewDraft(2, "  bags by the river  ", &models.AssistanceRequest{ContactEmail: " alice@example.com ", ContactPhone: "0912345678"})
	require.NoError(t, err)
	assert.Equal(t, "bags by the river", d.Description())
	require.NotNil(t, d.Assistance())
	assert.Equal(t, "alice@example.com", d.Assistance().ContactEmail)

	_, err = NewDraft(2, "", &models.AssistanceRequest{ContactEmail: "not-an-email", ContactPhone: "0912345678"})
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	_, err = NewDraft(2, "", &models.AssistanceRequest{ContactEmail: "alice@example.com"})
	assert.ErrorIs(t, err, ErrInvalidSubmission)
}

func TestDraftTransitionsDoNotMutate(t *testing.T) {
	d, err := NewDraft(3, "", nil)
	require.NoError(t, err)

	resolved := d.WithResolution(location.Resolution{Coordinate: models.Coordinate{Lat: 1, Lng: 2}, Source: models.LocationSourceManual})
	assert.False(t, d.Resolved())
	assert.True(t, resolved.Resolved())

	stored := resolved.WithImage(storage.StoredObject{URL: "https://x/y.jpg", Key: "y.jpg"})
	_, ok := resolved.Image()
	assert.False(t, ok)
	obj, ok := stored.Image()
	require.True(t, ok)
	assert.Equal(t, "y.jpg", obj.Key)
}

func TestDraftReport(t *testing.T) {
	captured := time.Date(2026, 3, 14, 18, 0, 0, 0, time.FixedZone("CST", 8*3600))
	d, err := NewDraft(4, "near the bridge", &models.AssistanceRequest{ContactEmail: "alice@example.com", ContactPhone: "0912345678"})
	require.NoError(t, err)

	_, err = d.Report("id-1", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidSubmission, "unresolved")

	d = d.WithResolution(location.Resolution{
		Coordinate: models.Coordinate{Lat: 25.0339, Lng: 121.5645},
		Source:     models.LocationSourceEXIF,
		CapturedAt: &captured,
	})
	_, err = d.Report("id-1", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidSubmission, "no image")

	d = d.WithImage(storage.StoredObject{URL: "https://cdn.example.com/a.jpg", Key: "reports/2026/03/id-1.jpg", Size: 10})
	r, err := d.Report("id-1", fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "https://cdn.example.com/a.jpg", r.ImageRef)
	assert.Equal(t, "reports/2026/03/id-1.jpg", r.ImageKey)
	assert.Equal(t, models.Coordinate{Lat: 25.0339, Lng: 121.5645}, r.Coordinate())
	assert.Equal(t, models.LocationSourceEXIF, r.LocationSource)
	assert.Equal(t, 4, r.SeverityLevel)
	assert.Equal(t, "near the bridge", r.Description)
	require.NotNil(t, r.CapturedAt)
	assert.True(t, r.CapturedAt.Equal(captured))
	assert.Equal(t, time.UTC, r.CapturedAt.Location())
	assert.Equal(t, fixedNow, r.SubmittedAt)
	require.NotNil(t, r.AssistanceRequest())
	assert.Equal(t, "0912345678", r.AssistanceRequest().ContactPhone)
}

func TestDraftReportRejectsOutOfRangeCoordinate(t *testing.T) {
	d, err := NewDraft(1, "", nil)
	require.NoError(t, err)
	d = d.WithResolution(location.Resolution{Coordinate: models.Coordinate{Lat: 91, Lng: 0}, Source: models.LocationSourceManual}).
		WithImage(storage.StoredObject{URL: "u", Key: "k"})

	_, err = d.Report("id-1", fixedNow)
	assert.ErrorIs(t, err, ErrInvalidSubmission)
	assert.ErrorContains(t, err, "out of range")
}

func TestDraftValidate(t *testing.T) {
	d, err := NewDraft(2, "", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, d.Validate(), ErrInvalidSubmission, "unresolved")

	resolved := d.WithResolution(location.Resolution{Coordinate: models.Coordinate{Lat: 25, Lng: 121}, Source: models.LocationSourceTextGeocode})
	assert.NoError(t, resolved.Validate(), "the image reference is not needed yet")

	noSeverity := Draft{}.WithResolution(location.Resolution{Coordinate: models.Coordinate{Lat: 25, Lng: 121}, Source: models.LocationSourceTextGeocode})
	err = noSeverity.Validate()
	assert.ErrorIs(t, err, ErrInvalidSubmission)
	assert.ErrorContains(t, err, "severity")
}

func TestBinaryExt(t *testing.T) {
	assert.Equal(t, ".jpg", Binary{Filename: "IMG_0001.JPEG", ContentType: "image/jpeg"}.Ext())
	assert.Equal(t, ".heic", Binary{Filename: "IMG_0002.HEIC", ContentType: "application/octet-stream"}.Ext())
	assert.Equal(t, "", Binary{Filename: "blob"}.Ext())
}
