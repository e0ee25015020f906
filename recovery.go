package eventsched

import (
	"context"
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched/internal"
)

// RecoveryConfig controls how often RecoveryLoop reclaims expired
// leases.
type RecoveryConfig struct {
	Interval time.Duration
}

// RecoveryLoop periodically returns Processing events whose lease has
// expired back to Pending so a future poll tick can reclaim them. It
// is safe to run one instance per orchestrator process: ReleaseExpired
// is a set-based UPDATE and is idempotent under concurrent execution.
type RecoveryLoop struct {
	lcBase
	maintenance Maintenance
	task        internal.TimerTask
	interval    time.Duration
	log         *slog.Logger
}

// NewRecoveryLoop creates a new RecoveryLoop. It is not started
// automatically.
func NewRecoveryLoop(maintenance Maintenance, config *RecoveryConfig, log *slog.Logger) *RecoveryLoop {
	return &RecoveryLoop{
		maintenance: maintenance,
		interval:    config.Interval,
		log:         log,
	}
}

func (r *RecoveryLoop) tick(ctx context.Context) {
	n, err := r.maintenance.ReleaseExpired(ctx, time.Now())
	if err != nil {
		r.log.Error("lease recovery failed", "err", err)
		return
	}
	if n > 0 {
		r.log.Info("released expired leases", "count", n)
	}
}

// Start begins periodic lease recovery.
func (r *RecoveryLoop) Start(ctx context.Context) error {
	if err := r.tryStart(); err != nil {
		return err
	}
	r.task.Start(ctx, r.tick, r.interval)
	return nil
}

// Stop stops the recovery loop, waiting up to timeout for the current
// tick to finish.
func (r *RecoveryLoop) Stop(timeout time.Duration) error {
	return r.tryStop(timeout, r.task.Stop)
}
