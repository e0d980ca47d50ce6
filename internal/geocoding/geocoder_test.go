package geocoding

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func newNominatim(url string) *NominatimGeocoder {
	return NewNominatimGeocoder(NominatimConfig{
		BaseURL:   url,
		UserAgent: "load-matcher",
		Timeout:   time.Second,
	}, logrus.New())
}

func TestNominatimGeocoder_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Dallas, TX", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "load-matcher", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat":"32.7762719","lon":"-96.7968559","display_name":"Dallas, Texas, United States"}]`))
	}))
	defer server.Close()

	point, err := newNominatim(server.URL).Geocode(context.Background(), "  Dallas,   TX ")
	require.NoError(t, err)
	assert.InDelta(t, 32.7762719, point.Lat, 1e-9)
	assert.InDelta(t, -96.7968559, point.Lng, 1e-9)
}

func TestNominatimGeocoder_NoMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	_, err := newNominatim(server.URL).Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNominatimGeocoder_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte("slow down"))
	}))
	defer server.Close()

	_, err := newNominatim(server.URL).Geocode(context.Background(), "Dallas")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "429")
}

func TestNominatimGeocoder_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	g := NewNominatimGeocoder(NominatimConfig{
		BaseURL:   server.URL,
		UserAgent: "load-matcher",
		Timeout:   time.Minute,
	}, logrus.New())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Geocode(ctx, "Dallas")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNominatimGeocoder_EmptyQuery(t *testing.T) {
	_, err := newNominatim("http://127.0.0.1:0").Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleGeocoder_Match(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Chicago, IL", r.URL.Query().Get("address"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Chicago, IL, USA","geometry":{"location":{"lat":41.8781,"lng":-87.6298}}}]}`))
	}))
	defer server.Close()

	g, err := NewGoogleGeocoder("AIzaTestKey", time.Second, logrus.New(), maps.WithBaseURL(server.URL))
	require.NoError(t, err)

	point, err := g.Geocode(context.Background(), "Chicago, IL")
	require.NoError(t, err)
	assert.InDelta(t, 41.8781, point.Lat, 1e-9)
	assert.InDelta(t, -87.6298, point.Lng, 1e-9)
}

func TestGoogleGeocoder_Denied(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"REQUEST_DENIED","error_message":"bad key","results":[]}`))
	}))
	defer server.Close()

	g, err := NewGoogleGeocoder("AIzaTestKey", time.Second, logrus.New(), maps.WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = g.Geocode(context.Background(), "Chicago, IL")
	assert.Error(t, err)
}

type countingGeocoder struct {
	calls int
	point geo.Point
	err   error
}

func (c *countingGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	c.calls++
	return c.point, c.err
}

type mapCache struct {
	mu      sync.Mutex
	points  map[string]geo.Point
	readErr error
}

func (m *mapCache) GetPoint(ctx context.Context, key string) (geo.Point, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return geo.Point{}, false, m.readErr
	}
	p, ok := m.points[key]
	return p, ok, nil
}

func (m *mapCache) SetPoint(ctx context.Context, key string, point geo.Point, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[key] = point
	return nil
}

func TestCachedGeocoder_ServesRepeatsFromCache(t *testing.T) {
	inner := &countingGeocoder{point: geo.Point{Lat: 1, Lng: 2}}
	cache := &mapCache{points: map[string]geo.Point{}}
	g := NewCachedGeocoder(inner, cache, time.Hour, logrus.New())

	for _, q := range []string{"Dallas, TX", "dallas,  tx", "DALLAS, TX"} {
		point, err := g.Geocode(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, geo.Point{Lat: 1, Lng: 2}, point)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Contains(t, cache.points, "dallas, tx")
}

func TestCachedGeocoder_DoesNotCacheMisses(t *testing.T) {
	inner := &countingGeocoder{err: ErrNotFound}
	cache := &mapCache{points: map[string]geo.Point{}}
	g := NewCachedGeocoder(inner, cache, time.Hour, logrus.New())

	_, err := g.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = g.Geocode(context.Background(), "Atlantis")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, cache.points)
}

func TestCachedGeocoder_FallsThroughOnCacheError(t *testing.T) {
	inner := &countingGeocoder{point: geo.Point{Lat: 5, Lng: 6}}
	cache := &mapCache{points: map[string]geo.Point{}, readErr: errors.New("redis down")}
	g := NewCachedGeocoder(inner, cache, time.Hour, logrus.New())

	point, err := g.Geocode(context.Background(), "Memphis")
	require.NoError(t, err)
	assert.Equal(t, geo.Point{Lat: 5, Lng: 6}, point)
	assert.Equal(t, 1, inner.calls)
}

func TestPlaceQuery(t *testing.T) {
	assert.Equal(t, "Dallas, TX", PlaceQuery(" Dallas ", "TX"))
	assert.Equal(t, "Dallas", PlaceQuery("Dallas", ""))
}
