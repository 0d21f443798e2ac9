package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

const defaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim queries an OpenStreetMap Nominatim server.
type Nominatim struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
}

func NewNominatim(cfg config.GeocoderConfig) *Nominatim {
	base := strings.TrimRight(firstNonEmpty(cfg.BaseURL, defaultNominatimURL), "/")
	return &Nominatim{
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (n *Nominatim) Provider() string { return config.GeocoderNominatim }

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type nominatimReverse struct {
	Error       string            `json:"error"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

func (n *Nominatim) Search(ctx context.Context, text string) ([]models.Coordinate, error) {
	q := url.Values{}
	q.Set("q", text)
	q.Set("format", "jsonv2")
	q.Set("limit", "5")

	var places []nominatimPlace
	if err := n.get(ctx, "/search", q, &places); err != nil {
		return nil, err
	}

	out := make([]models.Coordinate, 0, len(places))
	for _, p := range places {
		out = append(out, models.Coordinate{Lat: parseDegrees(p.Lat), Lng: parseDegrees(p.Lon)})
	}
	return out, nil
}

// parseDegrees keeps a broken value in place as NaN so candidate order
// matches the provider's; Coordinate.Validate rejects it.
func parseDegrees(v string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

func (n *Nominatim) Reverse(ctx context.Context, c models.Coordinate) (*Address, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Lng, 'f', -1, 64))
	q.Set("format", "jsonv2")
	q.Set("zoom", "14")

	var res nominatimReverse
	if err := n.get(ctx, "/reverse", q, &res); err != nil {
		return nil, err
	}
	if res.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrNoResults, res.Error)
	}

	a := res.Address
	region := firstNonEmpty(a["state"], a["city"], a["province"], a["county"])
	return &Address{
		Region:    region,
		Subregion: firstDistinct(region, a["city"], a["county"], a["city_district"], a["suburb"], a["town"], a["village"]),
		Formatted: res.DisplayName,
	}, nil
}

func (n *Nominatim) get(ctx context.Context, path string, q url.Values, dst any) error {
	if n.language != "" {
		q.Set("accept-language", n.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nominatim returned HTTP %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding nominatim response: %w", err)
	}
	return nil
}
