package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/events"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/models"
	"github.com/Ayash-Bera/carrier-sales/backend/internal/runstatus"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMetricsLimit = 100
	MaxMetricsLimit     = 1000

	runStatusTimeout = 5 * time.Second
)

// RefreshSummary counts one pass over the running metrics.
type RefreshSummary struct {
	Scanned int `json:"scanned"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
}

type MetricsService struct {
	metrics   models.MetricsRepository
	runs      runstatus.Fetcher
	publisher events.Publisher
	workers   int
	logger    *logrus.Logger
}

func NewMetricsService(
	metrics models.MetricsRepository,
	runs runstatus.Fetcher,
	publisher events.Publisher,
	workers int,
	logger *logrus.Logger,
) *MetricsService {
	if workers <= 0 {
		workers = 5
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &MetricsService{
		metrics:   metrics,
		runs:      runs,
		publisher: publisher,
		workers:   workers,
		logger:    logger,
	}
}

// NegotiationPerformance is offer minus agreed, nil unless both are set.
func NegotiationPerformance(initialOffer, agreedRate *float64) *float64 {
	if initialOffer == nil || agreedRate == nil {
		return nil
	}
	v := *initialOffer - *agreedRate
	return &v
}

// RateDifference is agreed minus loadboard, nil unless both are set.
func RateDifference(agreedRate, loadboardRate *float64) *float64 {
	if agreedRate == nil || loadboardRate == nil {
		return nil
	}
	v := *agreedRate - *loadboardRate
	return &v
}

// ClampMetricsLimit applies the default and the ceiling for list requests.
func ClampMetricsLimit(limit int) int {
	if limit <= 0 {
		return DefaultMetricsLimit
	}
	if limit > MaxMetricsLimit {
		return MaxMetricsLimit
	}
	return limit
}

// StoreMetrics enriches the record from the run-status API when it has a run id, then inserts it once.
func (s *MetricsService) StoreMetrics(ctx context.Context, req models.StoreMetricsRequest) (*models.CallMetric, error) {
	metric := &models.CallMetric{
		RunID:                  req.RunID,
		OrgID:                  req.OrgID,
		CarrierMC:              req.CarrierMC,
		LoadID:                 req.LoadID,
		Outcome:                strings.TrimSpace(req.Outcome),
		Sentiment:              req.Sentiment,
		CarrierInitialOffer:    req.CarrierInitialOffer,
		LoadAgreedRate:         req.LoadAgreedRate,
		LoadLoadboardRate:      req.LoadLoadboardRate,
		NegotiationAttempts:    req.NegotiationAttempts,
		NegotiationPerformance: NegotiationPerformance(req.CarrierInitialOffer, req.LoadAgreedRate),
		RateDifference:         RateDifference(req.LoadAgreedRate, req.LoadLoadboardRate),
		Notes:                  req.Notes,
	}

	if runID := stringValue(req.RunID); runID != "" {
		status, duration, err := s.fetchRun(ctx, runID, stringValue(req.OrgID))
		if err != nil {
			s.logger.WithError(err).WithField("run_id", runID).Warn("Run status lookup failed, storing without it")
		} else {
			metric.CallStatus = status
			metric.CallDuration = duration
		}
	}

	if err := s.metrics.Create(ctx, metric); err != nil {
		return nil, fmt.Errorf("failed to store metric: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"metric_id":   metric.ID,
		"run_id":      stringValue(metric.RunID),
		"outcome":     metric.Outcome,
		"call_status": stringValue(metric.CallStatus),
	}).Info("Metric stored")

	event := events.MetricStored{
		ID:                     metric.ID,
		RunID:                  metric.RunID,
		CarrierMC:              metric.CarrierMC,
		LoadID:                 metric.LoadID,
		Outcome:                metric.Outcome,
		Sentiment:              metric.Sentiment,
		NegotiationPerformance: metric.NegotiationPerformance,
		RateDifference:         metric.RateDifference,
		CallStatus:             metric.CallStatus,
		StoredAt:               metric.CreatedAt,
	}
	if err := s.publisher.PublishMetricStored(ctx, event); err != nil {
		s.logger.WithError(err).WithField("metric_id", metric.ID).Warn("Failed to publish metric event")
	}

	return metric, nil
}

func (s *MetricsService) ListMetrics(ctx context.Context, limit int) ([]models.CallMetric, error) {
	metrics, err := s.metrics.List(ctx, ClampMetricsLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list metrics: %w", err)
	}
	if metrics == nil {
		metrics = []models.CallMetric{}
	}
	return metrics, nil
}

// RefreshRunning re-reads the run status of every metric still marked running.
// Row failures are counted, not retried. Only a failed listing is returned as an error.
func (s *MetricsService) RefreshRunning(ctx context.Context) (RefreshSummary, error) {
	running, err := s.metrics.ListByCallStatus(ctx, models.CallStatusRunning)
	if err != nil {
		return RefreshSummary{}, fmt.Errorf("failed to list running metrics: %w", err)
	}

	summary := RefreshSummary{Scanned: len(running)}
	if len(running) == 0 {
		s.logger.Debug("No running metrics to refresh")
		return summary, nil
	}

	s.logger.WithFields(logrus.Fields{
		"count":   len(running),
		"workers": s.workers,
	}).Info("Refreshing running metrics")

	jobs := make(chan models.CallMetric, len(running))
	var updated, failed int64
	var wg sync.WaitGroup

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for metric := range jobs {
				if err := s.refreshOne(ctx, metric); err != nil {
					atomic.AddInt64(&failed, 1)
					s.logger.WithError(err).WithFields(logrus.Fields{
						"worker":    id,
						"metric_id": metric.ID,
					}).Warn("Metric refresh failed")
					continue
				}
				atomic.AddInt64(&updated, 1)
			}
		}(w)
	}

	for _, metric := range running {
		jobs <- metric
	}
	close(jobs)
	wg.Wait()

	summary.Updated = int(updated)
	summary.Failed = int(failed)

	s.logger.WithFields(logrus.Fields{
		"scanned": summary.Scanned,
		"updated": summary.Updated,
		"failed":  summary.Failed,
	}).Info("Metrics refresh completed")

	return summary, nil
}

func (s *MetricsService) refreshOne(ctx context.Context, metric models.CallMetric) error {
	runID := stringValue(metric.RunID)
	if runID == "" {
		return fmt.Errorf("metric has no run id")
	}

	status, duration, err := s.fetchRun(ctx, runID, stringValue(metric.OrgID))
	if err != nil {
		return err
	}
	return s.metrics.UpdateRunStatus(ctx, metric.ID, status, duration)
}

func (s *MetricsService) fetchRun(ctx context.Context, runID, orgID string) (*string, *float64, error) {
	if s.runs == nil {
		return nil, nil, runstatus.ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, runStatusTimeout)
	defer cancel()

	run, err := s.runs.GetRun(ctx, runID, orgID)
	if err != nil {
		return nil, nil, err
	}

	var status *string
	if run.Status != "" {
		status = &run.Status
	}
	return status, run.DurationSeconds(), nil
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
