package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/internal"
)

// statisticsSource is the subset of eventsched.Observer the Refresher
// depends on.
type statisticsSource interface {
	Statistics(ctx context.Context) (map[event.Status]int64, error)
}

// Refresher periodically recomputes EventsByStatus from a full-scan
// statistics aggregate. It is intentionally decoupled from scrape
// frequency.
type Refresher struct {
	observer statisticsSource
	metrics  *Metrics
	task     internal.TimerTask
	interval time.Duration
	log      *slog.Logger
}

// NewRefresher creates a Refresher. It is not started automatically.
func NewRefresher(observer statisticsSource, metrics *Metrics, interval time.Duration, log *slog.Logger) *Refresher {
	return &Refresher{observer: observer, metrics: metrics, interval: interval, log: log}
}

func (r *Refresher) tick(ctx context.Context) {
	stats, err := r.observer.Statistics(ctx)
	if err != nil {
		r.log.Error("failed to refresh status gauges", "err", err)
		return
	}
	for status, count := range stats {
		r.metrics.EventsByStatus.WithLabelValues(status.String()).Set(float64(count))
	}
}

// Start begins periodic refreshing. The first refresh runs as soon as
// the background loop starts, not after the first interval elapses.
func (r *Refresher) Start(ctx context.Context) {
	r.task.Start(ctx, r.tick, r.interval)
}

// Stop halts the refresher and waits for the current tick to finish.
func (r *Refresher) Stop() internal.DoneChan {
	return r.task.Stop()
}
