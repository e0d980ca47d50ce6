package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/bootstrap"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/config"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/seeder"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	seedFile       = flag.String("file", "data/seed.json", "Fixture with carriers and loads")
	dryRun         = flag.Bool("dry-run", false, "Normalize and geocode, but write nothing")
	verbose        = flag.Bool("verbose", false, "Enable verbose logging")
	migrationsPath = flag.String("migrations", "migrations", "Directory of SQL migrations (postgres store only, empty to skip)")
)

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
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	if cfg.Store.Driver == config.StoreDriverMemory && !*dryRun {
		logger.Warn("Seeding the memory store only lasts for this process; set DATABASE_URL or SUPABASE_URL to persist")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := bootstrap.OpenStore(ctx, cfg, *migrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer store.Close()

	geocoder, err := bootstrap.NewGeocoder(cfg, store, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize geocoder")
	}

	fixture, err := seeder.ReadFixture(*seedFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to read seed file")
	}

	logger.WithFields(logrus.Fields{
		"file":     *seedFile,
		"store":    cfg.Store.Driver,
		"carriers": len(fixture.Carriers),
		"loads":    len(fixture.Loads),
		"dry_run":  *dryRun,
	}).Info("Starting seed")

	s := seeder.NewSeeder(store.Repos, geocoder, seeder.Options{
		DryRun: *dryRun,
		Retry:  utils.DefaultRetryConfig(),
	}, logger)

	report, err := s.Seed(ctx, fixture)
	if err != nil {
		logger.WithError(err).Fatal("Seeding aborted")
	}

	if report.Errors > 0 {
		logger.WithField("errors", report.Errors).Warn("Some records failed to save")
	}
	logger.Info("Seeding finished")
}
