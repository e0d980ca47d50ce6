package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type NominatimConfig struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
}

// NominatimGeocoder queries an OpenStreetMap Nominatim instance.
// The public instance allows one request per second, so calls are throttled client-side.
type NominatimGeocoder struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func NewNominatimGeocoder(config NominatimConfig, logger *logrus.Logger) *NominatimGeocoder {
	limit := rate.Inf
	if config.RatePerSecond > 0 {
		limit = rate.Limit(config.RatePerSecond)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}

	return &NominatimGeocoder{
		baseURL:   config.BaseURL,
		userAgent: config.UserAgent,
		timeout:   timeout,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
	}
}

func (g *NominatimGeocoder) Geocode(ctx context.Context, query string) (geo.Point, error) {
	query = NormalizeQuery(query)
	if query == "" {
		return geo.Point{}, ErrNotFound
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return geo.Point{}, fmt.Errorf("geocoder rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	params := url.Values{
		"q":      {query},
		"format": {"json"},
		"limit":  {"1"},
	}
	endpoint := g.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return geo.Point{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", g.userAgent)
	req.Header.Set("Accept", "application/json")

	g.logger.WithField("query", query).Debug("Making Nominatim request")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geo.Point{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return geo.Point{}, fmt.Errorf("nominatim request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return geo.Point{}, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(places) == 0 {
		return geo.Point{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid latitude %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("invalid longitude %q: %w", places[0].Lon, err)
	}

	g.logger.WithFields(logrus.Fields{
		"query":        query,
		"display_name": places[0].DisplayName,
		"lat":          lat,
		"lng":          lng,
	}).Debug("Nominatim match")

	return geo.Point{Lat: lat, Lng: lng}, nil
}
