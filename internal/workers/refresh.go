package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coursemetrics/metrics-warehouse/internal/api"
	"github.com/coursemetrics/metrics-warehouse/internal/metrics"
	"github.com/coursemetrics/metrics-warehouse/pkg/logger"
)

// SummaryRefresher recomputes the summary for a fixed trailing window so the
// cache stays warm, and pushes the fresh snapshot to stream subscribers. The
// window ends on the current day boundary, matching the API's defaulted date
// range, so warmed entries are the ones defaulted requests look up.
type SummaryRefresher struct {
	svc    *metrics.Service
	hub    *api.Hub
	window time.Duration
	now    func() time.Time
}

// NewSummaryRefresher creates the periodic summary refresh worker.
func NewSummaryRefresher(svc *metrics.Service, hub *api.Hub, window time.Duration) *SummaryRefresher {
	return &SummaryRefresher{
		svc:    svc,
		hub:    hub,
		window: window,
		now:    time.Now,
	}
}

// Name returns worker name for logging
func (sr *SummaryRefresher) Name() string {
	return "summary_refresher"
}

// Run executes one refresh iteration.
func (sr *SummaryRefresher) Run(ctx context.Context) error {
	end := sr.now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-sr.window)

	results, err := sr.svc.ComputeAll(ctx, start, end)
	if err != nil {
		return err
	}

	logger.Debug("summary refreshed",
		zap.Int("metrics", len(results)),
		zap.Int("subscribers", sr.hub.ClientCount()),
	)

	if sr.hub.ClientCount() > 0 {
		sr.hub.Broadcast(map[string]any{
			"type":    "summary",
			"metrics": results,
			"range": map[string]string{
				"start": start.Format(time.RFC3339),
				"end":   end.Format(time.RFC3339),
			},
		})
	}
	return nil
}
