package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"hail/internal/geo"
)

// Geocoder resolves a street address to coordinates. External collaborator:
// this core consumes it as an opaque lookup.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (geo.Point, error)
}

// HTTPGeocoder resolves addresses against a JSON geocoding endpoint
// (expects {"lat": .., "lng": ..}; a 404 maps to ErrAddressNotFound).
type HTTPGeocoder struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPGeocoder creates a geocoder for the given endpoint.
func NewHTTPGeocoder(baseURL, apiKey string) *HTTPGeocoder {
	return &HTTPGeocoder{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

var _ Geocoder = (*HTTPGeocoder)(nil)

// Resolve looks the address up.
func (g *HTTPGeocoder) Resolve(ctx context.Context, address string) (geo.Point, error) {
	u := fmt.Sprintf("%s?address=%s&key=%s", g.baseURL, url.QueryEscape(address), url.QueryEscape(g.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return geo.Point{}, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return geo.Point{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return geo.Point{}, ErrAddressNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var point geo.Point
	if err := json.NewDecoder(resp.Body).Decode(&point); err != nil {
		return geo.Point{}, err
	}
	if !point.IsValid() {
		return geo.Point{}, ErrAddressNotFound
	}

	return point, nil
}
