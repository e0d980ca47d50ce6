package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LoadRepositoryImpl implements LoadRepository on postgres
type LoadRepositoryImpl struct {
	db *gorm.DB
}

func NewLoadRepository(db *gorm.DB) models.LoadRepository {
	return &LoadRepositoryImpl{db: db}
}

func (r *LoadRepositoryImpl) FindMatching(ctx context.Context, query models.LoadQuery) ([]models.Load, error) {
	tx := r.db.WithContext(ctx).
		Where("equipment_type = ?", query.EquipmentType).
		Where("origin_lat BETWEEN ? AND ?", query.Origin.MinLat, query.Origin.MaxLat).
		Where("origin_lng BETWEEN ? AND ?", query.Origin.MinLng, query.Origin.MaxLng)

	if query.Destination != nil {
		tx = tx.
			Where("destination_lat BETWEEN ? AND ?", query.Destination.MinLat, query.Destination.MaxLat).
			Where("destination_lng BETWEEN ? AND ?", query.Destination.MinLng, query.Destination.MaxLng)
	}
	if query.PickupAt != nil {
		tx = tx.Where("pickup_datetime = ?", *query.PickupAt)
	}

	var loads []models.Load
	if err := tx.Limit(query.Limit).Find(&loads).Error; err != nil {
		return nil, fmt.Errorf("failed to query loads: %w", err)
	}
	return loads, nil
}

func (r *LoadRepositoryImpl) Save(ctx context.Context, load *models.Load) error {
	load.AssignID()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "load_id"}},
			UpdateAll: true,
		}).
		Create(load).Error
}

// CarrierRepositoryImpl implements CarrierRepository on postgres
type CarrierRepositoryImpl struct {
	db *gorm.DB
}

func NewCarrierRepository(db *gorm.DB) models.CarrierRepository {
	return &CarrierRepositoryImpl{db: db}
}

func (r *CarrierRepositoryImpl) ExistsByMCNumber(ctx context.Context, mcNumber int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Carrier{}).
		Where("mc_number = ?", mcNumber).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up carrier: %w", err)
	}
	return count > 0, nil
}

func (r *CarrierRepositoryImpl) Save(ctx context.Context, carrier *models.Carrier) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "mc_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"dot_number", "legal_name", "status", "updated_at"}),
		}).
		Create(carrier).Error
}

// MetricsRepositoryImpl implements MetricsRepository on postgres
type MetricsRepositoryImpl struct {
	db *gorm.DB
}

func NewMetricsRepository(db *gorm.DB) models.MetricsRepository {
	return &MetricsRepositoryImpl{db: db}
}

func (r *MetricsRepositoryImpl) Create(ctx context.Context, metric *models.CallMetric) error {
	return r.db.WithContext(ctx).Create(metric).Error
}

func (r *MetricsRepositoryImpl) List(ctx context.Context, limit int) ([]models.CallMetric, error) {
	var metrics []models.CallMetric
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&metrics).Error
	return metrics, err
}

func (r *MetricsRepositoryImpl) ListByCallStatus(ctx context.Context, status string) ([]models.CallMetric, error) {
	var metrics []models.CallMetric
	err := r.db.WithContext(ctx).
		Where("call_status = ?", status).
		Order("created_at").
		Find(&metrics).Error
	return metrics, err
}

func (r *MetricsRepositoryImpl) UpdateRunStatus(ctx context.Context, id string, status *string, duration *float64) error {
	result := r.db.WithContext(ctx).
		Model(&models.CallMetric{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"call_status":   status,
			"call_duration": duration,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("metric %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// RepositoryManager bundles all repositories
type RepositoryManager struct {
	Loads    models.LoadRepository
	Carriers models.CarrierRepository
	Metrics  models.MetricsRepository
}

func NewRepositoryManager(db *gorm.DB) *RepositoryManager {
	return &RepositoryManager{
		Loads:    NewLoadRepository(db),
		Carriers: NewCarrierRepository(db),
		Metrics:  NewMetricsRepository(db),
	}
}
