package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
)

// MemoryLoadRepository keeps loads in insertion order so limited queries are deterministic.
type MemoryLoadRepository struct {
	mu    sync.RWMutex
	loads []models.Load
	index map[string]int
}

func NewMemoryLoadRepository() *MemoryLoadRepository {
	return &MemoryLoadRepository{index: make(map[string]int)}
}

func (r *MemoryLoadRepository) FindMatching(ctx context.Context, query models.LoadQuery) ([]models.Load, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []models.Load
	for _, load := range r.loads {
		if query.Limit > 0 && len(result) >= query.Limit {
			break
		}
		if query.Matches(load) {
			result = append(result, load)
		}
	}
	return result, nil
}

func (r *MemoryLoadRepository) Save(ctx context.Context, load *models.Load) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := load.Validate(); err != nil {
		return err
	}
	load.AssignID()
	if load.CreatedAt.IsZero() {
		load.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if i, ok := r.index[load.LoadID]; ok {
		r.loads[i] = *load
		return nil
	}
	r.index[load.LoadID] = len(r.loads)
	r.loads = append(r.loads, *load)
	return nil
}

type MemoryCarrierRepository struct {
	mu       sync.RWMutex
	carriers map[int64]models.Carrier
}

func NewMemoryCarrierRepository() *MemoryCarrierRepository {
	return &MemoryCarrierRepository{carriers: make(map[int64]models.Carrier)}
}

func (r *MemoryCarrierRepository) ExistsByMCNumber(ctx context.Context, mcNumber int64) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.carriers[mcNumber]
	return ok, nil
}

func (r *MemoryCarrierRepository) Save(ctx context.Context, carrier *models.Carrier) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := carrier.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if carrier.CreatedAt.IsZero() {
		carrier.CreatedAt = now
	}
	carrier.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	r.carriers[carrier.MCNumber] = *carrier
	return nil
}

type MemoryMetricsRepository struct {
	mu      sync.RWMutex
	metrics map[string]models.CallMetric
}

func NewMemoryMetricsRepository() *MemoryMetricsRepository {
	return &MemoryMetricsRepository{metrics: make(map[string]models.CallMetric)}
}

func (r *MemoryMetricsRepository) Create(ctx context.Context, metric *models.CallMetric) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if err := metric.Validate(); err != nil {
		return err
	}
	metric.AssignID()
	now := time.Now().UTC()
	if metric.CreatedAt.IsZero() {
		metric.CreatedAt = now
	}
	metric.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.metrics[metric.ID]; exists {
		return fmt.Errorf("metric %s already exists", metric.ID)
	}
	r.metrics[metric.ID] = *metric
	return nil
}

func (r *MemoryMetricsRepository) List(ctx context.Context, limit int) ([]models.CallMetric, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	metrics := r.sorted(func(models.CallMetric) bool { return true })

	// newest first
	for i, j := 0, len(metrics)-1; i < j; i, j = i+1, j-1 {
		metrics[i], metrics[j] = metrics[j], metrics[i]
	}
	if limit > 0 && len(metrics) > limit {
		metrics = metrics[:limit]
	}
	return metrics, nil
}

func (r *MemoryMetricsRepository) ListByCallStatus(ctx context.Context, status string) ([]models.CallMetric, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return r.sorted(func(m models.CallMetric) bool {
		return m.CallStatus != nil && *m.CallStatus == status
	}), nil
}

func (r *MemoryMetricsRepository) UpdateRunStatus(ctx context.Context, id string, status *string, duration *float64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	metric, ok := r.metrics[id]
	if !ok {
		return fmt.Errorf("metric %s: %w", id, models.ErrNotFound)
	}
	metric.CallStatus = status
	metric.CallDuration = duration
	metric.UpdatedAt = time.Now().UTC()
	r.metrics[id] = metric
	return nil
}

// sorted returns matching metrics oldest first, ties broken by id.
func (r *MemoryMetricsRepository) sorted(keep func(models.CallMetric) bool) []models.CallMetric {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.CallMetric, 0, len(r.metrics))
	for _, m := range r.metrics {
		if keep(m) {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

// NewMemoryRepositoryManager wires the in-process stores used when no database is configured.
func NewMemoryRepositoryManager() *RepositoryManager {
	return &RepositoryManager{
		Loads:    NewMemoryLoadRepository(),
		Carriers: NewMemoryCarrierRepository(),
		Metrics:  NewMemoryMetricsRepository(),
	}
}
