// Package seeder loads carriers and loads from a JSON fixture into a store,
// geocoding any load whose coordinates are missing.
package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/geocoding"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/repository"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Fixture is the on-disk seed format.
type Fixture struct {
	Carriers []models.Carrier `json:"carriers"`
	Loads    []models.Load    `json:"loads"`
}

// Report counts what a seed run did.
type Report struct {
	CarriersSaved int `json:"carriers_saved"`
	LoadsSaved    int `json:"loads_saved"`
	LoadsGeocoded int `json:"loads_geocoded"`
	LoadsSkipped  int `json:"loads_skipped"`
	Errors        int `json:"errors"`
}

type Options struct {
	DryRun bool
	Retry  utils.RetryConfig
}

type Seeder struct {
	repos     *repository.RepositoryManager
	geocoder  geocoding.Geocoder
	processor *LoadProcessor
	options   Options
	logger    *logrus.Logger
}

func NewSeeder(repos *repository.RepositoryManager, geocoder geocoding.Geocoder, options Options, logger *logrus.Logger) *Seeder {
	return &Seeder{
		repos:     repos,
		geocoder:  geocoder,
		processor: NewLoadProcessor(),
		options:   options,
		logger:    logger,
	}
}

func ReadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var fixture Fixture
	if err := json.Unmarshal(data, &fixture); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &fixture, nil
}

// Seed upserts every carrier and load. A load that cannot be geocoded is stored without
// coordinates and counted as skipped, since search can never match it.
func (s *Seeder) Seed(ctx context.Context, fixture *Fixture) (Report, error) {
	var report Report

	for i := range fixture.Carriers {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		carrier := &fixture.Carriers[i]
		s.processor.NormalizeCarrier(carrier)

		if s.options.DryRun {
			report.CarriersSaved++
			continue
		}
		if err := s.repos.Carriers.Save(ctx, carrier); err != nil {
			report.Errors++
			s.logger.WithError(err).WithField("mc_number", carrier.MCNumber).Error("Failed to save carrier")
			continue
		}
		report.CarriersSaved++
	}

	for i := range fixture.Loads {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		load := &fixture.Loads[i]
		s.processor.NormalizeLoad(load)
		log := s.logger.WithField("load_id", load.LoadID)

		geocoded, err := s.fillCoordinates(ctx, load)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return report, ctxErr
			}
			report.LoadsSkipped++
			log.WithError(err).Warn("Load could not be geocoded")
		}
		if geocoded {
			report.LoadsGeocoded++
		}

		if s.options.DryRun {
			report.LoadsSaved++
			continue
		}
		if err := s.repos.Loads.Save(ctx, load); err != nil {
			report.Errors++
			log.WithError(err).Error("Failed to save load")
			continue
		}
		report.LoadsSaved++
	}

	s.logger.WithFields(logrus.Fields{
		"carriers": report.CarriersSaved,
		"loads":    report.LoadsSaved,
		"geocoded": report.LoadsGeocoded,
		"skipped":  report.LoadsSkipped,
		"errors":   report.Errors,
		"dry_run":  s.options.DryRun,
	}).Info("Seeding completed")

	return report, nil
}

// fillCoordinates geocodes whichever endpoint lacks coordinates. It reports whether any lookup happened.
func (s *Seeder) fillCoordinates(ctx context.Context, load *models.Load) (bool, error) {
	geocoded := false

	if load.OriginLat == nil || load.OriginLng == nil {
		point, err := s.lookup(ctx, geocoding.PlaceQuery(load.OriginCity, deref(load.OriginState)))
		if err != nil {
			load.OriginLat, load.OriginLng = nil, nil
			return geocoded, fmt.Errorf("origin: %w", err)
		}
		load.OriginLat, load.OriginLng = &point.Lat, &point.Lng
		geocoded = true
	}

	if load.DestinationLat == nil || load.DestinationLng == nil {
		point, err := s.lookup(ctx, geocoding.PlaceQuery(load.DestinationCity, deref(load.DestinationState)))
		if err != nil {
			load.DestinationLat, load.DestinationLng = nil, nil
			return geocoded, fmt.Errorf("destination: %w", err)
		}
		load.DestinationLat, load.DestinationLng = &point.Lat, &point.Lng
		geocoded = true
	}

	return geocoded, nil
}

// lookup retries transient provider failures. A definite miss is not retried.
func (s *Seeder) lookup(ctx context.Context, query string) (geo.Point, error) {
	if s.geocoder == nil {
		return geo.Point{}, geocoding.ErrNotFound
	}

	var point geo.Point
	var notFound bool
	err := utils.Retry(ctx, s.options.Retry, s.logger, "geocode "+query, func() error {
		p, err := s.geocoder.Geocode(ctx, query)
		if errors.Is(err, geocoding.ErrNotFound) {
			notFound = true
			return nil
		}
		if err != nil {
			return err
		}
		point = p
		return nil
	})
	if err != nil {
		return geo.Point{}, err
	}
	if notFound {
		return geo.Point{}, geocoding.ErrNotFound
	}
	return point, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
