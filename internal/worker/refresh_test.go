package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Ayash-Bera/carrier-sales/backend/internal/services"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blockingRefresher struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	summary services.RefreshSummary
	err     error
}

func (b *blockingRefresher) RefreshRunning(ctx context.Context) (services.RefreshSummary, error) {
	b.mu.Lock()
	b.calls++
	b.mu.Unlock()
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return services.RefreshSummary{}, ctx.Err()
		}
	}
	return b.summary, b.err
}

func (b *blockingRefresher) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func waitForRuns(t *testing.T, w *RefreshWorker, runs int) *RunReport {
	t.Helper()
	var report *RunReport
	require.Eventually(t, func() bool {
		report = w.LastRun()
		return report != nil && report.Runs >= runs
	}, 2*time.Second, 5*time.Millisecond)
	return report
}

func TestRefreshWorker_TriggerRecordsLastRun(t *testing.T) {
	refresher := &blockingRefresher{summary: services.RefreshSummary{Scanned: 4, Updated: 3, Failed: 1}}
	w := NewRefreshWorker(refresher, 0, time.Second, logrus.New())
	assert.Nil(t, w.LastRun())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	assert.True(t, w.Trigger())
	report := waitForRuns(t, w, 1)

	assert.Equal(t, services.RefreshSummary{Scanned: 4, Updated: 3, Failed: 1}, report.Summary)
	assert.Equal(t, "manual", report.Trigger)
	assert.Empty(t, report.Error)
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestRefreshWorker_TriggerDoesNotStack(t *testing.T) {
	refresher := &blockingRefresher{release: make(chan struct{})}
	w := NewRefreshWorker(refresher, 0, time.Second, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	require.True(t, w.Trigger())
	require.Eventually(t, func() bool { return refresher.Calls() == 1 }, time.Second, 5*time.Millisecond)

	// One run is active and the slot is free, so exactly one more can queue.
	assert.True(t, w.Trigger())
	assert.False(t, w.Trigger())

	close(refresher.release)
	report := waitForRuns(t, w, 2)
	assert.Equal(t, 2, report.Runs)
	assert.Equal(t, 2, refresher.Calls())
}

func TestRefreshWorker_RecordsError(t *testing.T) {
	refresher := &blockingRefresher{err: errors.New("failed to list running metrics: db down")}
	w := NewRefreshWorker(refresher, 0, time.Second, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	w.Trigger()
	report := waitForRuns(t, w, 1)
	assert.Equal(t, "failed to list running metrics: db down", report.Error)
}

func TestRefreshWorker_Interval(t *testing.T) {
	refresher := &blockingRefresher{}
	w := NewRefreshWorker(refresher, 10*time.Millisecond, time.Second, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	report := waitForRuns(t, w, 2)
	assert.Equal(t, "interval", report.Trigger)
}

func TestRefreshWorker_RunTimeout(t *testing.T) {
	refresher := &blockingRefresher{release: make(chan struct{})}
	w := NewRefreshWorker(refresher, 0, 20*time.Millisecond, logrus.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	w.Trigger()
	report := waitForRuns(t, w, 1)
	assert.Contains(t, report.Error, "deadline exceeded")
}
