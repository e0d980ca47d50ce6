package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/api"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/api/handlers"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/bootstrap"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/config"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/events"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/geocoding"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/health"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/middleware"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/runstatus"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/seeder"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/worker"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var migrationsPath = flag.String("migrations", "migrations", "Directory of SQL migrations (postgres store only, empty to skip)")

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server exited with error")
	}
}

func run(cfg *config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	store, err := bootstrap.OpenStore(ctx, cfg, *migrationsPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	geocoder, err := bootstrap.NewGeocoder(cfg, store, logger)
	if err != nil {
		return err
	}

	if cfg.Store.Driver == config.StoreDriverMemory && cfg.Store.SeedFile != "" {
		if err := seedMemoryStore(ctx, cfg.Store.SeedFile, store, geocoder, logger); err != nil {
			return err
		}
	}

	runClient := runstatus.NewClient(cfg.HappyRobot.APIBaseURL, cfg.HappyRobot.BearerToken, cfg.HappyRobot.Timeout, logger)
	probes := store.Probes
	if err := cfg.ValidateRunStatus(); err != nil {
		logger.WithError(err).Warn("Run status API disabled, lookups will be skipped")
	} else {
		probes = append(probes, health.Probe{Name: "run_status_api", Check: runClient.Ping})
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			logger.WithError(err).Warn("NATS unavailable, metric events disabled")
		} else {
			publisher = natsPublisher
		}
	}
	defer publisher.Close()

	loadService := services.NewLoadService(geocoder, store.Repos.Loads, cfg.Search.RadiusMiles, cfg.Search.Limit, logger)
	carrierService := services.NewCarrierService(store.Repos.Carriers, logger)
	metricsService := services.NewMetricsService(store.Repos.Metrics, runClient, publisher, cfg.Metrics.RefreshWorkers, logger)

	refresher := worker.NewRefreshWorker(metricsService, cfg.Metrics.RefreshInterval, cfg.Metrics.RefreshTimeout, logger)
	healthChecker := health.NewHealthChecker(probes, 5*time.Second, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit.PerMinute)

	var background sync.WaitGroup
	startBackground := func(fn func(context.Context)) {
		background.Add(1)
		go func() {
			defer background.Done()
			fn(ctx)
		}()
	}
	startBackground(refresher.Start)
	startBackground(func(ctx context.Context) { healthChecker.PeriodicHealthCheck(ctx, 30*time.Second) })
	startBackground(func(ctx context.Context) { rateLimiter.Cleanup(ctx, time.Minute) })

	router := api.NewRouter(api.RouterDeps{
		APIKey:      cfg.APIKey,
		Carriers:    handlers.NewCarrierHandler(carrierService, logger),
		Loads:       handlers.NewLoadHandler(loadService, 20*time.Second, logger),
		Metrics:     handlers.NewMetricsHandler(metricsService, refresher, logger),
		Health:      handlers.NewHealthHandler(healthChecker, 30*time.Second),
		RateLimiter: rateLimiter,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(router, "carrier-sales-api"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{
			"port":     cfg.Server.Port,
			"store":    cfg.Store.Driver,
			"geocoder": cfg.Geocoder.Provider,
			"api_key":  utils.MaskSecret(cfg.APIKey),
		}).Info("Carrier Sales API starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			stop()
			background.Wait()
			return err
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	stop()
	background.Wait()
	logger.Info("Server stopped")
	return err
}

func seedMemoryStore(ctx context.Context, path string, store *bootstrap.Store, geocoder geocoding.Geocoder, logger *logrus.Logger) error {
	fixture, err := seeder.ReadFixture(path)
	if err != nil {
		return err
	}
	report, err := seeder.NewSeeder(store.Repos, geocoder, seeder.Options{Retry: utils.DefaultRetryConfig()}, logger).Seed(ctx, fixture)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"file":     path,
		"carriers": report.CarriersSaved,
		"loads":    report.LoadsSaved,
	}).Info("Memory store seeded")
	return nil
}
