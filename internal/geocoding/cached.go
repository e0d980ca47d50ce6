package geocoding

import (
	"context"
	"strings"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/sirupsen/logrus"
)

// PointCache stores resolved coordinates. A miss is (zero, false, nil).
type PointCache interface {
	GetPoint(ctx context.Context, key string) (geo.Point, bool, error)
	SetPoint(ctx context.Context, key string, point geo.Point, ttl time.Duration) error
}

// CachedGeocoder serves repeat lookups from a PointCache. Only matches are cached.
type CachedGeocoder struct {
	inner  Geocoder
	cache  PointCache
	ttl    time.Duration
	logger *logrus.Logger
}

func NewCachedGeocoder(inner Geocoder, cache PointCache, ttl time.Duration, logger *logrus.Logger) *CachedGeocoder {
	return &CachedGeocoder{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

func (g *CachedGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	key := strings.ToLower(NormalizeQuery(query))
	if key == "" {
		return geo.Point{}, ErrNotFound
	}

	point, ok, err := g.cache.GetPoint(ctx, key)
	if err != nil {
		g.logger.WithError(err).WithField("query", key).Warn("Geocode cache read failed")
	} else if ok {
		g.logger.WithField("query", key).Debug("Geocode served from cache")
		return point, nil
	}

	point, err = g.inner.Geocode(ctx, query)
	if err != nil {
		return geo.Point{}, err
	}

	if err := g.cache.SetPoint(ctx, key, point, g.ttl); err != nil {
		g.logger.WithError(err).WithField("query", key).Warn("Failed to cache geocode result")
	}
	return point, nil
}
