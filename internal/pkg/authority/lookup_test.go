package authority

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/geocoding"
)

const testDirectory = `
default:
  name: National Hotline
  phone: "0800"
contacts:
  Taipei:
    name: Taipei EPD
    phone: "1999"
  " Taipei_Xinyi ":
    name: Xinyi Team
    phone: "02-1"
`

type fakeReverse struct {
	addr *geocoding.Address
	err  error
}

func (f fakeReverse) Reverse(ctx context.Context, c models.Coordinate) (*geocoding.Address, error) {
	return f.addr, f.err
}

func loadTestDirectory(t *testing.T) *Directory {
	t.Helper()
	d, err := ParseDirectory([]byte(testDirectory))
	require.NoError(t, err)
	return d
}

func TestContactFor_Tiers(t *testing.T) {
	d := loadTestDirectory(t)

	tests := []struct {
		name string
		j    *models.Jurisdiction
		want string
	}{
		{"subregion match", &models.Jurisdiction{Region: "Taipei", Subregion: "Xinyi"}, "Xinyi Team"},
		{"subregion match with padding", &models.Jurisdiction{Region: " Taipei ", Subregion: " Xinyi"}, "Xinyi Team"},
		{"region fallback", &models.Jurisdiction{Region: "Taipei", Subregion: "Beitou"}, "Taipei EPD"},
		{"region only", &models.Jurisdiction{Region: "Taipei"}, "Taipei EPD"},
		{"unknown region", &models.Jurisdiction{Region: "Tainan", Subregion: "East"}, "National Hotline"},
		{"case sensitive", &models.Jurisdiction{Region: "taipei"}, "National Hotline"},
		{"no jurisdiction", nil, "National Hotline"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, d.ContactFor(tt.j).Name)
		})
	}
}

func TestLookup(t *testing.T) {
	d := loadTestDirectory(t)
	c := models.Coordinate{Lat: 25.033, Lng: 121.5654}

	contact, j := NewLookup(fakeReverse{addr: &geocoding.Address{Region: "Taipei", Subregion: "Xinyi"}}, d).Lookup(context.Background(), c)
	assert.Equal(t, "Xinyi Team", contact.Name)
	assert.Equal(t, &models.Jurisdiction{Region: "Taipei", Subregion: "Xinyi"}, j)

	contact, j = NewLookup(fakeReverse{err: errors.New("timeout")}, d).Lookup(context.Background(), c)
	assert.Equal(t, "National Hotline", contact.Name)
	assert.Nil(t, j)

	contact, j = NewLookup(fakeReverse{addr: &geocoding.Address{}}, d).Lookup(context.Background(), c)
	assert.Equal(t, "National Hotline", contact.Name)
	assert.Nil(t, j)

	contact, j = NewLookup(nil, d).Lookup(context.Background(), c)
	assert.Equal(t, "National Hotline", contact.Name)
	assert.Nil(t, j)
}

func TestParseDirectory_Errors(t *testing.T) {
	_, err := ParseDirectory([]byte("contacts: {}"))
	assert.ErrorContains(t, err, "default")

	_, err = ParseDirectory([]byte("default: [unclosed"))
	assert.Error(t, err)
}

func TestLoadDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "authorities.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testDirectory), 0o644))

	d, err := LoadDirectory(path)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, "0800", d.Default().Phone)

	_, err = LoadDirectory(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBundledDirectoryParses(t *testing.T) {
	d, err := LoadDirectory(filepath.Join("..", "..", "..", "config", "authorities.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, d.Default().Name)
	assert.Equal(t, "Da'an District Cleaning Team", d.ContactFor(&models.Jurisdiction{Region: "臺北市", Subregion: "大安區"}).Name)
}
