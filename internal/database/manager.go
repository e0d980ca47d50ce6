package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/geo"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/pkg/utils"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotConfigured is returned by pings against a connection that was never opened.
var ErrNotConfigured = errors.New("connection not configured")

// Manager owns the postgres and redis connections. Either one may be nil
// when its URL was not configured.
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
	Retry       utils.RetryConfig
}

// NewManager opens whichever connections are configured, retrying each with backoff.
func NewManager(ctx context.Context, config *Config, logger *logrus.Logger) (*Manager, error) {
	m := &Manager{logger: logger}

	if config.DatabaseURL != "" {
		err := utils.Retry(ctx, config.Retry, logger, "postgres connect", func() error {
			db, err := openPostgres(config.DatabaseURL, config.LogLevel, logger)
			if err != nil {
				return err
			}
			m.DB = db
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if config.RedisURL != "" {
		client, err := openRedis(config.RedisURL)
		if err != nil {
			m.Close()
			return nil, err
		}
		err = utils.Retry(ctx, config.Retry, logger, "redis connect", func() error {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return client.Ping(pingCtx).Err()
		})
		if err != nil {
			client.Close()
			m.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		m.Redis = client
	}

	logger.WithFields(logrus.Fields{
		"postgres": m.DB != nil,
		"redis":    m.Redis != nil,
	}).Info("Database connections established")

	return m, nil
}

func openPostgres(url, level string, logger *logrus.Logger) (*gorm.DB, error) {
	gormLog := gormlogger.Default.LogMode(gormlogger.Silent)
	if level == "debug" {
		gormLog = gormlogger.New(logger, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		})
	}

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger:                 gormLog,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func openRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxConnAge = time.Hour
	opts.IdleTimeout = 30 * time.Minute
	opts.IdleCheckFrequency = 30 * time.Second

	return redis.NewClient(opts), nil
}

// Migrate creates or updates the tables for loads, carriers and metrics.
func (m *Manager) Migrate() error {
	if m.DB == nil {
		return ErrNotConfigured
	}
	m.logger.Info("Running database migrations...")

	return m.DB.AutoMigrate(
		&models.Load{},
		&models.Carrier{},
		&models.CallMetric{},
	)
}

func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

func (m *Manager) PingDatabase(ctx context.Context) error {
	if m.DB == nil {
		return ErrNotConfigured
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) PingRedis(ctx context.Context) error {
	if m.Redis == nil {
		return ErrNotConfigured
	}
	return m.Redis.Ping(ctx).Err()
}

// Cache stores geocoded points in redis.
type Cache struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewCache(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{
		client: client,
		logger: logger,
	}
}

const GeocodeKey = "geocode:%s"

func (c *Cache) GetPoint(ctx context.Context, query string) (geo.Point, bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf(GeocodeKey, query)).Result()
	if err == redis.Nil {
		return geo.Point{}, false, nil
	}
	if err != nil {
		return geo.Point{}, false, err
	}

	var point geo.Point
	if err := json.Unmarshal([]byte(data), &point); err != nil {
		return geo.Point{}, false, fmt.Errorf("failed to unmarshal cached point: %w", err)
	}
	return point, true, nil
}

func (c *Cache) SetPoint(ctx context.Context, query string, point geo.Point, expiration time.Duration) error {
	data, err := json.Marshal(point)
	if err != nil {
		return fmt.Errorf("failed to marshal point: %w", err)
	}
	return c.client.Set(ctx, fmt.Sprintf(GeocodeKey, query), data, expiration).Err()
}
