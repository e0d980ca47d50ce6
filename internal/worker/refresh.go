package worker

import (
	"context"
	"sync"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/sirupsen/logrus"
)

// Refresher is the unit of work the worker runs.
type Refresher interface {
	RefreshRunning(ctx context.Context) (services.RefreshSummary, error)
}

// RunReport describes the most recent refresh pass.
type RunReport struct {
	Summary    services.RefreshSummary `json:"summary"`
	Error      string                  `json:"error,omitempty"`
	Trigger    string                  `json:"trigger"`
	StartedAt  time.Time               `json:"started_at"`
	FinishedAt time.Time               `json:"finished_at"`
	Runs       int                     `json:"runs"`
}

// RefreshWorker serializes metric refreshes. At most one run is queued behind the active one.
type RefreshWorker struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	trigger   chan string
	logger    *logrus.Logger

	mu   sync.RWMutex
	last *RunReport
	runs int
}

func NewRefreshWorker(refresher Refresher, interval, timeout time.Duration, logger *logrus.Logger) *RefreshWorker {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &RefreshWorker{
		refresher: refresher,
		interval:  interval,
		timeout:   timeout,
		trigger:   make(chan string, 1),
		logger:    logger,
	}
}

// Trigger queues a run without blocking. It returns false when one is already queued.
func (w *RefreshWorker) Trigger() bool {
	select {
	case w.trigger <- "manual":
		return true
	default:
		return false
	}
}

// LastRun returns a copy of the latest report, or nil before the first run completes.
func (w *RefreshWorker) LastRun() *RunReport {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.last == nil {
		return nil
	}
	report := *w.last
	return &report
}

// Start blocks until ctx is cancelled. A zero interval disables the ticker.
func (w *RefreshWorker) Start(ctx context.Context) {
	var tick <-chan time.Time
	if w.interval > 0 {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	w.logger.WithField("interval", w.interval.String()).Info("Metrics refresh worker started")

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Metrics refresh worker stopped")
			return
		case source := <-w.trigger:
			w.run(ctx, source)
		case <-tick:
			w.run(ctx, "interval")
		}
	}
}

func (w *RefreshWorker) run(ctx context.Context, source string) {
	runCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	started := time.Now().UTC()
	summary, err := w.refresher.RefreshRunning(runCtx)
	finished := time.Now().UTC()

	report := RunReport{
		Summary:    summary,
		Trigger:    source,
		StartedAt:  started,
		FinishedAt: finished,
	}

	log := w.logger.WithFields(logrus.Fields{
		"trigger":  source,
		"scanned":  summary.Scanned,
		"updated":  summary.Updated,
		"failed":   summary.Failed,
		"duration": finished.Sub(started).String(),
	})
	if err != nil {
		report.Error = err.Error()
		log.WithError(err).Error("Metrics refresh failed")
	} else {
		log.Info("Metrics refresh finished")
	}

	w.mu.Lock()
	w.runs++
	report.Runs = w.runs
	w.last = &report
	w.mu.Unlock()
}
