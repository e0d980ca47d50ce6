package health

import (
	"context"
	"sync"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Probe is one named dependency check.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// OverallHealth is the aggregate of every probe.
type OverallHealth struct {
	Status       string                 `json:"status"`
	Dependencies []models.ServiceHealth `json:"dependencies"`
	Uptime       string                 `json:"uptime"`
	CheckedAt    time.Time              `json:"checked_at"`
}

// HealthChecker runs the probes and keeps the latest snapshot.
type HealthChecker struct {
	probes    []Probe
	timeout   time.Duration
	startedAt time.Time
	logger    *logrus.Logger

	mu       sync.RWMutex
	snapshot *OverallHealth
}

func NewHealthChecker(probes []Probe, timeout time.Duration, logger *logrus.Logger) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		probes:    probes,
		timeout:   timeout,
		startedAt: time.Now(),
		logger:    logger,
	}
}

func (h *HealthChecker) check(ctx context.Context, probe Probe) models.ServiceHealth {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := probe.Check(ctx)
	responseTime := int(time.Since(start).Milliseconds())

	status := StatusHealthy
	errorMsg := ""
	if err != nil {
		status = StatusUnhealthy
		errorMsg = err.Error()
		h.logger.WithError(err).WithField("dependency", probe.Name).Error("Health check failed")
	}

	return models.ServiceHealth{
		Name:         probe.Name,
		Status:       status,
		ResponseTime: responseTime,
		Error:        errorMsg,
		LastChecked:  time.Now().UTC().Format(time.RFC3339),
	}
}

// CheckAll runs every probe concurrently and stores the result as the new snapshot.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	results := make([]models.ServiceHealth, len(h.probes))

	var wg sync.WaitGroup
	for i, probe := range h.probes {
		wg.Add(1)
		go func(i int, probe Probe) {
			defer wg.Done()
			results[i] = h.check(ctx, probe)
		}(i, probe)
	}
	wg.Wait()

	overallStatus := StatusHealthy
	for _, result := range results {
		if result.Status == StatusUnhealthy {
			overallStatus = StatusUnhealthy
			break
		}
	}

	health := OverallHealth{
		Status:       overallStatus,
		Dependencies: results,
		Uptime:       h.Uptime(),
		CheckedAt:    time.Now().UTC(),
	}

	h.mu.Lock()
	h.snapshot = &health
	h.mu.Unlock()

	return health
}

// CheckCached returns the last snapshot when it is younger than maxAge, otherwise checks again.
func (h *HealthChecker) CheckCached(ctx context.Context, maxAge time.Duration) OverallHealth {
	h.mu.RLock()
	snapshot := h.snapshot
	h.mu.RUnlock()

	if snapshot != nil && time.Since(snapshot.CheckedAt) < maxAge {
		cached := *snapshot
		cached.Uptime = h.Uptime()
		return cached
	}
	return h.CheckAll(ctx)
}

func (h *HealthChecker) Uptime() string {
	return time.Since(h.startedAt).Round(time.Second).String()
}

// PeriodicHealthCheck refreshes the snapshot every interval until ctx is done.
func (h *HealthChecker) PeriodicHealthCheck(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			health := h.CheckAll(ctx)
			h.logger.WithField("status", health.Status).Debug("Periodic health check completed")
		}
	}
}
