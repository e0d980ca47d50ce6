// Package bootstrap builds the store and geocoder chain shared by the server and the seed command.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/config"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/database"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/geocoding"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/health"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/migration"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/repository"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/supabase"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Store is the selected persistence backend plus the probes that watch it.
type Store struct {
	Driver  string
	Repos   *repository.RepositoryManager
	Manager *database.Manager
	Probes  []health.Probe
}

func (s *Store) Close() {
	if s.Manager != nil {
		s.Manager.Close()
	}
}

// OpenStore connects the configured driver. Redis is opened whenever REDIS_URL is set, whatever the driver.
// A non-empty migrationsPath runs migrations on the postgres driver.
func OpenStore(ctx context.Context, cfg *config.Config, migrationsPath string, logger *logrus.Logger) (*Store, error) {
	store := &Store{Driver: cfg.Store.Driver}

	dbConfig := &database.Config{
		RedisURL: cfg.Redis.URL,
		LogLevel: cfg.LogLevel,
		Retry:    utils.DefaultRetryConfig(),
	}
	if cfg.Store.Driver == config.StoreDriverPostgres {
		dbConfig.DatabaseURL = cfg.Database.URL
	}

	if dbConfig.DatabaseURL != "" || dbConfig.RedisURL != "" {
		manager, err := database.NewManager(ctx, dbConfig, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database manager: %w", err)
		}
		store.Manager = manager
		if manager.Redis != nil {
			store.Probes = append(store.Probes, health.Probe{Name: "redis", Check: manager.PingRedis})
		}
	}

	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		if migrationsPath != "" {
			if err := migration.NewRunner(store.Manager, logger).RunMigrations(migrationsPath); err != nil {
				store.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
		}
		store.Repos = repository.NewRepositoryManager(store.Manager.DB)
		store.Probes = append(store.Probes, health.Probe{Name: "database", Check: store.Manager.PingDatabase})

	case config.StoreDriverSupabase:
		client, err := supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.Key, 10*time.Second, logger)
		if err != nil {
			store.Close()
			return nil, err
		}
		store.Repos = supabase.NewRepositoryManager(client)
		store.Probes = append(store.Probes, health.Probe{Name: "database", Check: client.Ping})

	default:
		store.Repos = repository.NewMemoryRepositoryManager()
	}

	logger.WithFields(logrus.Fields{
		"driver": store.Driver,
		"redis":  store.Manager != nil && store.Manager.Redis != nil,
	}).Info("Store initialized")

	return store, nil
}

// NewGeocoder builds the configured provider, wrapped in the redis cache when one is available.
func NewGeocoder(cfg *config.Config, store *Store, logger *logrus.Logger) (geocoding.Geocoder, error) {
	var geocoder geocoding.Geocoder

	switch cfg.Geocoder.Provider {
	case config.GeocoderGoogle:
		google, err := geocoding.NewGoogleGeocoder(cfg.Google.MapsAPIKey, cfg.Geocoder.Timeout, logger)
		if err != nil {
			return nil, err
		}
		geocoder = google
	default:
		geocoder = geocoding.NewNominatimGeocoder(geocoding.NominatimConfig{
			BaseURL:       cfg.Geocoder.BaseURL,
			UserAgent:     cfg.Geocoder.UserAgent,
			Timeout:       cfg.Geocoder.Timeout,
			RatePerSecond: cfg.Geocoder.RatePerSecond,
		}, logger)
	}

	if store != nil && store.Manager != nil && store.Manager.Redis != nil {
		cache := database.NewCache(store.Manager.Redis, logger)
		geocoder = geocoding.NewCachedGeocoder(geocoder, cache, cfg.Geocoder.CacheTTL, logger)
	}

	logger.WithField("provider", cfg.Geocoder.Provider).Info("Geocoder initialized")
	return geocoder, nil
}
