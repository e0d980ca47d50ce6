// Package geo holds the coordinate types and the bounding-box approximation used by load search.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// MilesPerDegreeLat is the flat-earth approximation used for every box.
const MilesPerDegreeLat = 69.0

var (
	ErrInvalidCenter = errors.New("invalid bounding box center")
	ErrInvalidRadius = errors.New("invalid bounding box radius")
)

// Point is a WGS 84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox is an axis-aligned lat/lng rectangle. Bounds are inclusive.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLng float64 `json:"max_lng"`
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// NewBoundingBox approximates a circle of radiusMiles around center.
// Longitude is scaled by cos(lat), so centers at or beyond the poles are rejected.
// The box is not wrapped at the antimeridian.
func NewBoundingBox(center Point, radiusMiles float64) (BoundingBox, error) {
	if math.IsNaN(center.Lat) || math.IsNaN(center.Lng) || math.Abs(center.Lat) >= 90 {
		return BoundingBox{}, fmt.Errorf("%w: lat=%v lng=%v", ErrInvalidCenter, center.Lat, center.Lng)
	}
	if math.IsNaN(radiusMiles) || radiusMiles <= 0 {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidRadius, radiusMiles)
	}

	latDelta := radiusMiles / MilesPerDegreeLat
	lngDelta := radiusMiles / (math.Cos(degreesToRadians(center.Lat)) * MilesPerDegreeLat)

	return BoundingBox{
		MinLat: center.Lat - latDelta,
		MaxLat: center.Lat + latDelta,
		MinLng: center.Lng - lngDelta,
		MaxLng: center.Lng + lngDelta,
	}, nil
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
