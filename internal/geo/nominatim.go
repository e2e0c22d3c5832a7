// Package geo talks to the external geocoding and weather services.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"example.com/tripplanner/internal/domain"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// MaxSearchResults caps the number of candidates a search returns.
const MaxSearchResults = 10

// Place is one geocoding candidate.
type Place struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"display_name"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Geocoder resolves free-text addresses with a Nominatim-compatible search API.
// Requests are paced by a shared limiter to honour the service usage policy.
type Geocoder struct {
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewGeocoder constructs a Geocoder. interval is the minimum spacing between requests.
func NewGeocoder(baseURL, userAgent string, interval time.Duration) *Geocoder {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if userAgent == "" {
		userAgent = "TripPlanner/1.0"
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Geocoder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

var _ domain.Geocoder = (*Geocoder)(nil)

// Search returns up to limit candidates for query, best match first.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty address", domain.ErrValidation)
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		geocodeRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		geocodeRequests.WithLabelValues("error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("nominatim error (%d): %s", resp.StatusCode, body)
	}

	var raw []struct {
		Lat         string  `json:"lat"`
		Lon         string  `json:"lon"`
		DisplayName string  `json:"display_name"`
		Type        string  `json:"type"`
		Importance  float64 `json:"importance"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		geocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		lat, latErr := strconv.ParseFloat(r.Lat, 64)
		lng, lngErr := strconv.ParseFloat(r.Lon, 64)
		if latErr != nil || lngErr != nil {
			continue
		}
		places = append(places, Place{Lat: lat, Lng: lng, DisplayName: r.DisplayName, Type: r.Type, Importance: r.Importance})
	}
	if len(places) == 0 {
		geocodeRequests.WithLabelValues("no_match").Inc()
	} else {
		geocodeRequests.WithLabelValues("ok").Inc()
	}
	return places, nil
}

// Locate implements domain.Geocoder with the first search result.
func (g *Geocoder) Locate(ctx context.Context, query string) (domain.Coordinates, error) {
	places, err := g.Search(ctx, query, 1)
	if err != nil {
		return domain.Coordinates{}, err
	}
	if len(places) == 0 {
		return domain.Coordinates{}, fmt.Errorf("%q: %w", query, domain.ErrNoMatch)
	}
	return domain.Coordinates{Lat: places[0].Lat, Lng: places[0].Lng}, nil
}
