package geocoding

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

func testGeocoderConfig(baseURL string) config.GeocoderConfig {
	return config.GeocoderConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		UserAgent: "trashmap-test/1.0",
		Language:  "en",
		Timeout:   2 * time.Second,
	}
}

func TestNominatimSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Taipei 101", r.URL.Query().Get("q"))
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "en", r.URL.Query().Get("accept-language"))
		assert.Equal(t, "trashmap-test/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"lat":"25.0339639","lon":"121.5644722","display_name":"Taipei 101"},
			{"lat":"not-a-number","lon":"121.5","display_name":"broken"},
			{"lat":"25.1","lon":"121.6","display_name":"second"}
		]`))
	}))
	defer srv.Close()

	n := NewNominatim(testGeocoderConfig(srv.URL))
	got, err := n.Search(context.Background(), "Taipei 101")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.InDelta(t, 25.0339639, got[0].Lat, 1e-9)
	assert.InDelta(t, 121.5644722, got[0].Lng, 1e-9)
	assert.True(t, math.IsNaN(got[1].Lat), "broken entries keep their position")
	assert.Error(t, got[1].Validate())
	assert.Equal(t, models.Coordinate{Lat: 25.1, Lng: 121.6}, got[2])
}

func TestNominatimSearch_KeepsBrokenFirstCandidate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"lat":"95.5","lon":"121.5","display_name":"out of range"},
			{"lat":"25.1","lon":"121.6","display_name":"second"}
		]`))
	}))
	defer srv.Close()

	got, err := NewNominatim(testGeocoderConfig(srv.URL)).Search(context.Background(), "somewhere")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, models.Coordinate{Lat: 95.5, Lng: 121.5}, got[0])
	assert.ErrorIs(t, got[0].Validate(), models.ErrCoordinateOutOfRange)
}

func TestNominatimSearch_Empty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	got, err := NewNominatim(testGeocoderConfig(srv.URL)).Search(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNominatimSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewNominatim(testGeocoderConfig(srv.URL)).Search(context.Background(), "x")
	assert.ErrorContains(t, err, "429")
}

func TestNominatimReverse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *Address
		wantErr error
	}{
		{
			name: "municipality without state",
			body: `{"display_name":"Xinyi Road, Da'an District, Taipei","address":{"city":"Taipei","suburb":"Da'an District","country":"Taiwan"}}`,
			want: &Address{Region: "Taipei", Subregion: "Da'an District", Formatted: "Xinyi Road, Da'an District, Taipei"},
		},
		{
			name: "state and city",
			body: `{"display_name":"Pittsburgh, PA","address":{"state":"Pennsylvania","county":"Allegheny County","city":"Pittsburgh"}}`,
			want: &Address{Region: "Pennsylvania", Subregion: "Pittsburgh", Formatted: "Pittsburgh, PA"},
		},
		{
			name:    "ocean",
			body:    `{"error":"Unable to geocode"}`,
			wantErr: ErrNoResults,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/reverse", r.URL.Path)
				assert.Equal(t, "40.446111", r.URL.Query().Get("lat"))
				assert.Equal(t, "-79.982222", r.URL.Query().Get("lon"))
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := NewNominatim(testGeocoderConfig(srv.URL)).Reverse(context.Background(), models.Coordinate{Lat: 40.446111, Lng: -79.982222})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAddressJurisdiction(t *testing.T) {
	var nilAddr *Address
	assert.Nil(t, nilAddr.Jurisdiction())
	assert.Nil(t, (&Address{Subregion: "x"}).Jurisdiction())
	assert.Equal(t, &models.Jurisdiction{Region: "Taipei", Subregion: "Xinyi"}, (&Address{Region: " Taipei", Subregion: "Xinyi "}).Jurisdiction())
}

func TestNew(t *testing.T) {
	cfg := testGeocoderConfig("")

	cfg.Provider = config.GeocoderNone
	assert.Nil(t, New(cfg, nil))

	cfg.Provider = config.GeocoderNominatim
	assert.IsType(t, &Nominatim{}, New(cfg, nil))

	cfg.Provider = config.GeocoderGoogle
	assert.IsType(t, &Google{}, New(cfg, nil))
}
