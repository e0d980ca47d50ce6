package supabase

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/repository"
	postgrest "github.com/supabase-community/postgrest-go"
)

type LoadRepository struct {
	client *Client
}

func NewLoadRepository(client *Client) *LoadRepository {
	return &LoadRepository{client: client}
}

func (r *LoadRepository) FindMatching(ctx context.Context, q models.LoadQuery) ([]models.Load, error) {
	ranges := []string{
		between("origin_lat", q.Origin.MinLat, q.Origin.MaxLat),
		between("origin_lng", q.Origin.MinLng, q.Origin.MaxLng),
	}
	if q.Destination != nil {
		ranges = append(ranges,
			between("destination_lat", q.Destination.MinLat, q.Destination.MaxLat),
			between("destination_lng", q.Destination.MinLng, q.Destination.MaxLng),
		)
	}

	query := r.client.rest.From("loads").
		Select("*", "", false).
		Eq("equipment_type", q.EquipmentType).
		And(strings.Join(ranges, ","), "")
	if q.PickupAt != nil {
		query = query.Eq("pickup_datetime", q.PickupAt.UTC().Format(time.RFC3339Nano))
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit, "")
	}

	var loads []models.Load
	err := r.client.exec(ctx, http.MethodGet, "loads", func() error {
		_, err := query.ExecuteTo(&loads)
		return err
	})
	if err != nil {
		return nil, err
	}
	return loads, nil
}

func (r *LoadRepository) Save(ctx context.Context, load *models.Load) error {
	load.AssignID()
	if err := load.Validate(); err != nil {
		return err
	}
	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now().UTC()
	}

	body, err := payload(load)
	if err != nil {
		return err
	}

	var saved []models.Load
	err = r.client.exec(ctx, http.MethodPost, "loads", func() error {
		_, err := r.client.rest.From("loads").Upsert(body, "load_id", "representation", "").ExecuteTo(&saved)
		return err
	})
	if err != nil {
		return err
	}
	if len(saved) > 0 {
		*load = saved[0]
	}
	return nil
}

type CarrierRepository struct {
	client *Client
}

func NewCarrierRepository(client *Client) *CarrierRepository {
	return &CarrierRepository{client: client}
}

func (r *CarrierRepository) ExistsByMCNumber(ctx context.Context, mcNumber int64) (bool, error) {
	var rows []struct {
		MCNumber int64 `json:"mc_number"`
	}
	err := r.client.exec(ctx, http.MethodGet, "carriers", func() error {
		_, err := r.client.rest.From("carriers").
			Select("mc_number", "", false).
			Eq("mc_number", strconv.FormatInt(mcNumber, 10)).
			Limit(1, "").
			ExecuteTo(&rows)
		return err
	})
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// carrierRow leaves out the serial id so PostgREST assigns it.
type carrierRow struct {
	MCNumber  int64     `json:"mc_number"`
	DOTNumber *int64    `json:"dot_number,omitempty"`
	LegalName string    `json:"legal_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r *CarrierRepository) Save(ctx context.Context, carrier *models.Carrier) error {
	if err := carrier.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if carrier.CreatedAt.IsZero() {
		carrier.CreatedAt = now
	}
	carrier.UpdatedAt = now
	if carrier.Status == "" {
		carrier.Status = "active"
	}

	body, err := payload(carrierRow{
		MCNumber:  carrier.MCNumber,
		DOTNumber: carrier.DOTNumber,
		LegalName: carrier.LegalName,
		Status:    carrier.Status,
		CreatedAt: carrier.CreatedAt,
		UpdatedAt: carrier.UpdatedAt,
	})
	if err != nil {
		return err
	}

	var saved []models.Carrier
	err = r.client.exec(ctx, http.MethodPost, "carriers", func() error {
		_, err := r.client.rest.From("carriers").Upsert(body, "mc_number", "representation", "").ExecuteTo(&saved)
		return err
	})
	if err != nil {
		return err
	}
	if len(saved) > 0 {
		carrier.ID = saved[0].ID
	}
	return nil
}

type MetricsRepository struct {
	client *Client
}

func NewMetricsRepository(client *Client) *MetricsRepository {
	return &MetricsRepository{client: client}
}

func (r *MetricsRepository) Create(ctx context.Context, metric *models.CallMetric) error {
	if err := metric.Validate(); err != nil {
		return err
	}
	metric.AssignID()
	now := time.Now().UTC()
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = now
	}
	metric.UpdatedAt = now

	body, err := payload(metric)
	if err != nil {
		return err
	}

	var saved []models.CallMetric
	err = r.client.exec(ctx, http.MethodPost, "metrics", func() error {
		_, err := r.client.rest.From("metrics").Insert(body, false, "", "representation", "").ExecuteTo(&saved)
		return err
	})
	if err != nil {
		return err
	}
	if len(saved) > 0 {
		*metric = saved[0]
	}
	return nil
}

func (r *MetricsRepository) List(ctx context.Context, limit int) ([]models.CallMetric, error) {
	query := r.client.rest.From("metrics").
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false})
	if limit > 0 {
		query = query.Limit(limit, "")
	}

	var metrics []models.CallMetric
	err := r.client.exec(ctx, http.MethodGet, "metrics", func() error {
		_, err := query.ExecuteTo(&metrics)
		return err
	})
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

func (r *MetricsRepository) ListByCallStatus(ctx context.Context, status string) ([]models.CallMetric, error) {
	var metrics []models.CallMetric
	err := r.client.exec(ctx, http.MethodGet, "metrics", func() error {
		_, err := r.client.rest.From("metrics").
			Select("*", "", false).
			Eq("call_status", status).
			Order("created_at", &postgrest.OrderOpts{Ascending: true}).
			ExecuteTo(&metrics)
		return err
	})
	if err != nil {
		return nil, err
	}
	return metrics, nil
}

type runStatusPatch struct {
	CallStatus   *string   `json:"call_status"`
	CallDuration *float64  `json:"call_duration"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (r *MetricsRepository) UpdateRunStatus(ctx context.Context, id string, status *string, duration *float64) error {
	body, err := payload(runStatusPatch{
		CallStatus:   status,
		CallDuration: duration,
		UpdatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var updated []struct {
		ID string `json:"id"`
	}
	err = r.client.exec(ctx, http.MethodPatch, "metrics", func() error {
		_, err := r.client.rest.From("metrics").
			Update(body, "representation", "").
			Eq("id", id).
			ExecuteTo(&updated)
		return err
	})
	if err != nil {
		return err
	}
	if len(updated) == 0 {
		return fmt.Errorf("metric %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// NewRepositoryManager wires the three PostgREST-backed repositories.
func NewRepositoryManager(client *Client) *repository.RepositoryManager {
	return &repository.RepositoryManager{
		Loads:    NewLoadRepository(client),
		Carriers: NewCarrierRepository(client),
		Metrics:  NewMetricsRepository(client),
	}
}
