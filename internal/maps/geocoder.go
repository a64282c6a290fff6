package maps

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"
)

// ErrNotFound is returned when an address cannot be resolved to coordinates.
var ErrNotFound = errors.New("address not found")

// Geocoder resolves free-form address text to coordinates using the Google
// Maps Geocoding API.
type Geocoder struct {
	client *maps.Client
}

// NewGeocoder creates a new Geocoder with the given API key.
func NewGeocoder(apiKey string) (*Geocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &Geocoder{client: client}, nil
}

// ResolveCoordinates returns the coordinates of the first geocoding result
// for the address. An empty result set maps to ErrNotFound.
func (g *Geocoder) ResolveCoordinates(ctx context.Context, address string) (lat, lng float64, err error) {
	r := &maps.GeocodingRequest{Address: address}

	results, err := g.client.Geocode(ctx, r)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding api error: %w", err)
	}

	if len(results) == 0 {
		return 0, 0, ErrNotFound
	}

	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
