package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/trashmap/trashmap-api/app/models"
	"github.com/trashmap/trashmap-api/internal/pkg/config"
)

const defaultGoogleURL = "https://maps.googleapis.com"

// Google wraps the Google Maps Geocoding API.
type Google struct {
	baseURL    string
	apiKey     string
	language   string
	httpClient *http.Client
}

func NewGoogle(cfg config.GeocoderConfig) *Google {
	return &Google{
		baseURL:    strings.TrimRight(firstNonEmpty(cfg.BaseURL, defaultGoogleURL), "/"),
		apiKey:     cfg.APIKey,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (g *Google) Provider() string { return config.GeocoderGoogle }

type googleResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	AddressComponents []addressComponent `json:"address_components"`
	FormattedAddress  string             `json:"formatted_address"`
	Geometry          struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

type addressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (g *Google) Search(ctx context.Context, text string) ([]models.Coordinate, error) {
	q := url.Values{}
	q.Set("address", text)

	resp, err := g.get(ctx, q)
	if err != nil {
		return nil, err
	}

	out := make([]models.Coordinate, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, models.Coordinate{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng})
	}
	return out, nil
}

func (g *Google) Reverse(ctx context.Context, c models.Coordinate) (*Address, error) {
	q := url.Values{}
	q.Set("latlng", fmt.Sprintf("%f,%f", c.Lat, c.Lng))

	resp, err := g.get(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNoResults
	}

	result := resp.Results[0]
	parts := map[string]string{}
	for _, comp := range result.AddressComponents {
		for _, t := range comp.Types {
			if _, seen := parts[t]; !seen {
				parts[t] = comp.LongName
			}
		}
	}

	region := firstNonEmpty(parts["administrative_area_level_1"], parts["locality"])
	return &Address{
		Region: region,
		Subregion: firstDistinct(region,
			parts["administrative_area_level_2"],
			parts["locality"],
			parts["administrative_area_level_3"],
			parts["sublocality_level_1"],
		),
		Formatted: result.FormattedAddress,
	}, nil
}

func (g *Google) get(ctx context.Context, q url.Values) (*googleResponse, error) {
	q.Set("key", g.apiKey)
	if g.language != "" {
		q.Set("language", g.language)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/maps/api/geocode/json?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding API returned HTTP %d", resp.StatusCode)
	}

	var geoResp googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&geoResp); err != nil {
		return nil, fmt.Errorf("decoding geocoding response: %w", err)
	}

	switch geoResp.Status {
	case "OK":
		return &geoResp, nil
	case "ZERO_RESULTS":
		geoResp.Results = nil
		return &geoResp, nil
	default:
		return nil, fmt.Errorf("geocoding failed: status=%s %s", geoResp.Status, geoResp.ErrorMessage)
	}
}
