// Package geocoding resolves free-text place names to coordinates.
package geocoding

import (
	"context"
	"errors"
	"strings"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
)

// ErrNotFound means the provider answered but had no match for the query.
var ErrNotFound = errors.New("location not found")

type Geocoder interface {
	Geocode(ctx context.Context, query string) (geo.Point, error)
}

// NormalizeQuery collapses whitespace so "Dallas,  TX" and "Dallas, TX" share a cache entry.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

// PlaceQuery joins a city and an optional state the way providers expect.
func PlaceQuery(city, state string) string {
	city = strings.TrimSpace(city)
	state = strings.TrimSpace(state)
	if state == "" {
		return city
	}
	return city + ", " + state
}
