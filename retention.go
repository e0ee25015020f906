package eventsched

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched/internal"
	"github.com/robfig/cron/v3"
)

// ErrNoSchedule is returned by NewRetentionLoop when config.Schedule is
// empty.
var ErrNoSchedule = errors.New("retention schedule must not be empty")

// maxRetentionIterations caps how many DeleteTerminalBatch calls a
// single retention run will make, so a backlog built up during an
// outage cannot turn one cron tick into an unbounded loop.
const maxRetentionIterations = 1000

// retentionBatchPause is the pause between consecutive delete batches
// within a single retention run, giving the store room to serve other
// traffic between batches.
const retentionBatchPause = 100 * time.Millisecond

// RetentionConfig controls the retention sweep schedule.
type RetentionConfig struct {
	// Schedule is a standard five-field cron expression, evaluated in
	// the local time of the process.
	Schedule string

	// MaxAge is how long a terminal event is kept after ExecutedAt
	// before it becomes eligible for deletion.
	MaxAge time.Duration

	// BatchSize is the number of rows deleted per DeleteTerminalBatch
	// call.
	BatchSize int
}

// RetentionLoop runs a cron-scheduled sweep that deletes terminal
// events older than MaxAge, in bounded batches.
type RetentionLoop struct {
	lcBase
	maintenance Maintenance
	cron        *cron.Cron
	maxAge      time.Duration
	batchSize   int
	log         *slog.Logger
	entryID     cron.EntryID
}

// NewRetentionLoop creates a new RetentionLoop. It is not started
// automatically.
func NewRetentionLoop(maintenance Maintenance, config *RetentionConfig, log *slog.Logger) (*RetentionLoop, error) {
	if config.Schedule == "" {
		return nil, ErrNoSchedule
	}
	c := cron.New()
	r := &RetentionLoop{
		maintenance: maintenance,
		cron:        c,
		maxAge:      config.MaxAge,
		batchSize:   config.BatchSize,
		log:         log,
	}
	id, err := c.AddFunc(config.Schedule, func() { r.sweep(context.Background()) })
	if err != nil {
		return nil, err
	}
	r.entryID = id
	return r, nil
}

func (r *RetentionLoop) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-r.maxAge)
	total := int64(0)
	for i := 0; i < maxRetentionIterations; i++ {
		n, err := r.maintenance.DeleteTerminalBatch(ctx, cutoff, r.batchSize)
		if err != nil {
			r.log.Error("retention sweep failed", "err", err, "deleted_so_far", total)
			return
		}
		total += n
		if n < int64(r.batchSize) {
			break
		}
		if i == maxRetentionIterations-1 {
			r.log.Warn("retention sweep hit iteration cap, remaining rows deferred to next run",
				"iterations", maxRetentionIterations, "deleted", total)
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(retentionBatchPause):
		}
	}
	if total > 0 {
		r.log.Info("retention sweep completed", "deleted", total)
	}
}

// Start begins the cron schedule.
//
// Start returns ErrDoubleStarted if the loop has already been started.
func (r *RetentionLoop) Start(ctx context.Context) error {
	if err := r.tryStart(); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop stops the cron schedule and waits for any in-progress sweep to
// finish, subject to timeout.
func (r *RetentionLoop) Stop(timeout time.Duration) error {
	return r.tryStop(timeout, func() internal.DoneChan {
		done := make(internal.DoneChan)
		go func() {
			<-r.cron.Stop().Done()
			close(done)
		}()
		return done
	})
}
