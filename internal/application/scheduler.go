// Package application contains the application services.
package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/geofacet/internal/domain"
	"github.com/jobrunner/geofacet/internal/ports/input"
)

// ErrRateLimited is returned when the export API rate limit is exceeded.
var ErrRateLimited = errors.New("rate limit exceeded")

// triggerCooldown is the minimum delay between two API-triggered runs.
const triggerCooldown = 30 * time.Second

// ScheduleResult contains the result of one export run.
type ScheduleResult struct {
	Exports         []domain.ExportResult `json:"exports"`
	Failed          map[string]string     `json:"failed,omitempty"`
	RunAt           time.Time             `json:"run_at"`
	NextScheduledAt time.Time             `json:"next_scheduled_at,omitempty"`
}

// ExportScheduler periodically re-exports a fixed list of data layers.
type ExportScheduler struct {
	exporter input.ExportService
	layerIDs []string
	interval time.Duration
	logger   *slog.Logger

	// Lifecycle management
	stopCh chan struct{}
	wg     sync.WaitGroup

	// Rate limiting for API triggers
	lastAPIRun time.Time
	apiMutex   sync.Mutex

	// Prevents concurrent runs
	runMutex sync.Mutex

	nextRun time.Time
	runMu   sync.RWMutex
}

// NewExportScheduler creates a new export scheduler.
func NewExportScheduler(exporter input.ExportService, layerIDs []string, interval time.Duration, logger *slog.Logger) *ExportScheduler {
	return &ExportScheduler{
		exporter: exporter,
		layerIDs: layerIDs,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
		// Allows an immediate first API call
		lastAPIRun: time.Now().Add(-triggerCooldown - time.Second),
	}
}

// Start begins the periodic export loop.
func (s *ExportScheduler) Start(ctx context.Context) {
	s.logger.Info("starting export scheduler", "interval", s.interval, "layers", s.layerIDs)

	s.wg.Add(1)
	go s.run(ctx)
}

func (s *ExportScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.setNextRun(time.Now().Add(s.interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("export scheduler stopped: context canceled")
			return
		case <-s.stopCh:
			s.logger.Info("export scheduler stopped")
			return
		case <-ticker.C:
			s.logger.Debug("scheduled export triggered")
			s.runExports(ctx)
			s.setNextRun(time.Now().Add(s.interval))
		}
	}
}

// Stop gracefully stops the scheduler.
func (s *ExportScheduler) Stop() {
	s.logger.Info("stopping export scheduler")
	close(s.stopCh)
	s.wg.Wait()
}

// TriggerExport runs the scheduled exports now.
// Returns ErrRateLimited if called again within 30 seconds.
func (s *ExportScheduler) TriggerExport(ctx context.Context) (ScheduleResult, error) {
	s.apiMutex.Lock()
	defer s.apiMutex.Unlock()

	if time.Since(s.lastAPIRun) < triggerCooldown {
		return ScheduleResult{}, ErrRateLimited
	}
	s.lastAPIRun = time.Now()

	result := s.runExports(ctx)
	result.NextScheduledAt = s.getNextRun()
	return result, nil
}

// runExports exports every scheduled layer. A failing layer does not stop
// the others.
func (s *ExportScheduler) runExports(ctx context.Context) ScheduleResult {
	s.runMutex.Lock()
	defer s.runMutex.Unlock()

	result := ScheduleResult{
		Exports: make([]domain.ExportResult, 0, len(s.layerIDs)),
		RunAt:   time.Now().UTC(),
	}
	for _, id := range s.layerIDs {
		export, err := s.exporter.ExportLayer(ctx, id)
		if err != nil {
			s.logger.Error("scheduled export failed", "layer", id, "error", err)
			if result.Failed == nil {
				result.Failed = make(map[string]string)
			}
			result.Failed[id] = err.Error()
			continue
		}
		result.Exports = append(result.Exports, *export)
	}

	s.logger.Info("export run completed",
		"exported", len(result.Exports),
		"failed", len(result.Failed),
	)
	return result
}

func (s *ExportScheduler) setNextRun(t time.Time) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.nextRun = t
}

func (s *ExportScheduler) getNextRun() time.Time {
	s.runMu.RLock()
	defer s.runMu.RUnlock()
	return s.nextRun
}

// Interval returns the export interval.
func (s *ExportScheduler) Interval() time.Duration {
	return s.interval
}
