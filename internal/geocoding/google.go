package geocoding

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/sirupsen/logrus"
	"googlemaps.github.io/maps"
)

// GoogleGeocoder resolves places through the Google Maps Geocoding API.
type GoogleGeocoder struct {
	client  *maps.Client
	timeout time.Duration
	logger  *logrus.Logger
}

// NewGoogleGeocoder creates a geocoder with the given API key. Extra options are passed to the maps client.
func NewGoogleGeocoder(apiKey string, timeout time.Duration, logger *logrus.Logger, opts ...maps.ClientOption) (*GoogleGeocoder, error) {
	options := append([]maps.ClientOption{maps.WithAPIKey(apiKey)}, opts...)
	client, err := maps.NewClient(options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GoogleGeocoder{client: client, timeout: timeout, logger: logger}, nil
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return geo.Point{}, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{
		Address: query,
		Region:  "us",
	})
	if err != nil {
		return geo.Point{}, fmt.Errorf("maps api error: %w", err)
	}
	if len(results) == 0 {
		return geo.Point{}, ErrNotFound
	}

	location := results[0].Geometry.Location
	g.logger.WithFields(logrus.Fields{
		"query":             query,
		"formatted_address": results[0].FormattedAddress,
	}).Debug("Google geocode match")

	return geo.Point{Lat: location.Lat, Lng: location.Lng}, nil
}
