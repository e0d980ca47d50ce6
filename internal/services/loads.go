package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/geocoding"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	OmittedDestination    = "destination"
	OmittedPickupDatetime = "pickup_datetime"
)

// ErrInvalidPickupDatetime is the only error FindMatchingLoads returns.
var ErrInvalidPickupDatetime = errors.New("invalid pickup datetime")

// Layouts without a zone are read as UTC. Fractional seconds are accepted after any seconds field.
var pickupLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

type LoadSearchCriteria struct {
	EquipmentType  string
	Origin         string
	Destination    string
	PickupDatetime string
}

type LoadSearchResult struct {
	Loads             []models.Load
	OmittedParameters []string
}

func emptySearchResult() *LoadSearchResult {
	return &LoadSearchResult{
		Loads:             []models.Load{},
		OmittedParameters: []string{},
	}
}

type LoadService struct {
	geocoder    geocoding.Geocoder
	loads       models.LoadRepository
	radiusMiles float64
	limit       int
	logger      *logrus.Logger
}

func NewLoadService(
	geocoder geocoding.Geocoder,
	loads models.LoadRepository,
	radiusMiles float64,
	limit int,
	logger *logrus.Logger,
) *LoadService {
	return &LoadService{
		geocoder:    geocoder,
		loads:       loads,
		radiusMiles: radiusMiles,
		limit:       limit,
		logger:      logger,
	}
}

// ParsePickupDatetime returns nil for a blank value. Timestamps without an offset are read as UTC.
func ParsePickupDatetime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range pickupLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidPickupDatetime, raw)
}

// searchLevel is one rung of the relaxation ladder.
type searchLevel struct {
	name    string
	query   models.LoadQuery
	omitted []string
}

// buildLadder lists the levels to try, most specific first. Equipment and origin are never relaxed.
func (s *LoadService) buildLadder(equipment string, origin geo.BoundingBox, destination *geo.BoundingBox, pickup *time.Time) []searchLevel {
	base := models.LoadQuery{
		EquipmentType: equipment,
		Origin:        origin,
		Limit:         s.limit,
	}

	full := base
	full.Destination = destination
	full.PickupAt = pickup
	levels := []searchLevel{{name: "A", query: full, omitted: []string{}}}

	if pickup != nil {
		withoutPickup := base
		withoutPickup.Destination = destination
		levels = append(levels, searchLevel{
			name:    "B",
			query:   withoutPickup,
			omitted: []string{OmittedPickupDatetime},
		})
	}

	if destination != nil {
		omitted := []string{OmittedDestination}
		if pickup != nil {
			omitted = append(omitted, OmittedPickupDatetime)
		}
		levels = append(levels, searchLevel{name: "C", query: base, omitted: omitted})
	}

	return levels
}

// FindMatchingLoads geocodes the criteria and walks the relaxation ladder until a level returns loads.
// Geocoder and store failures are logged and produce an empty result.
func (s *LoadService) FindMatchingLoads(ctx context.Context, criteria LoadSearchCriteria) (*LoadSearchResult, error) {
	equipment := models.NormalizeEquipmentType(criteria.EquipmentType)
	pickup, err := ParsePickupDatetime(criteria.PickupDatetime)
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{
		"equipment_type": equipment,
		"origin":         criteria.Origin,
		"destination":    criteria.Destination,
	})

	originBox, ok := s.resolveBox(ctx, criteria.Origin, log)
	if !ok {
		return emptySearchResult(), nil
	}

	var destinationBox *geo.BoundingBox
	if strings.TrimSpace(criteria.Destination) != "" {
		box, ok := s.resolveBox(ctx, criteria.Destination, log)
		if !ok {
			return emptySearchResult(), nil
		}
		destinationBox = &box
	}

	for _, level := range s.buildLadder(equipment, originBox, destinationBox, pickup) {
		loads, err := s.loads.FindMatching(ctx, level.query)
		if err != nil {
			log.WithError(err).WithField("level", level.name).Error("Load store query failed")
			return emptySearchResult(), nil
		}
		if len(loads) > 0 {
			log.WithFields(logrus.Fields{
				"level":   level.name,
				"count":   len(loads),
				"omitted": level.omitted,
			}).Info("Load search matched")
			return &LoadSearchResult{Loads: loads, OmittedParameters: level.omitted}, nil
		}
		log.WithField("level", level.name).Debug("No loads at level")
	}

	log.Info("Load search found nothing at any level")
	return emptySearchResult(), nil
}

func (s *LoadService) resolveBox(ctx context.Context, place string, log *logrus.Entry) (geo.BoundingBox, bool) {
	point, err := s.geocoder.Geocode(ctx, place)
	if err != nil {
		if errors.Is(err, geocoding.ErrNotFound) {
			log.WithField("place", place).Info("Location did not resolve")
		} else {
			log.WithError(err).WithField("place", place).Warn("Geocoding failed")
		}
		return geo.BoundingBox{}, false
	}

	box, err := geo.NewBoundingBox(point, s.radiusMiles)
	if err != nil {
		log.WithError(err).WithField("place", place).Warn("Could not build bounding box")
		return geo.BoundingBox{}, false
	}
	return box, true
}
