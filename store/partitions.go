package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/internal"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// partitionLookahead is how many days ahead of today EnsurePartitions
// creates child partitions for, so a submission scheduled a few days
// out never lands on a missing partition.
const partitionLookahead = 14

// partitionSpan is the number of consecutive day-keys each range
// partition covers.
const partitionSpan = 10

// partitionRangeStart returns the first day-key covered by the
// ten-day range partition that key falls into. A day-key is
// year*1000 + day-of-year, so a ten-day bucket never crosses a year
// boundary: the highest possible day-of-year (366) still falls far
// short of the next year's offset of 1000.
func partitionRangeStart(key int64) int64 {
	year := key / 1000
	dayOfYear := key % 1000
	bucketStart := ((dayOfYear-1)/partitionSpan)*partitionSpan + 1
	return year*1000 + bucketStart
}

func partitionName(rangeStart int64) string {
	return fmt.Sprintf("events_p%d", rangeStart)
}

// createPartition creates the declarative range partition covering
// key's ten-day bucket, if it does not already exist.
//
// Native Postgres range partitioning is used; on dialects without
// partition support (the sqlite test harness) this is a no-op, since
// partition_key there is just an indexed column, not a partitioning
// key.
func createPartition(ctx context.Context, db bun.IDB, key int64) error {
	if db.Dialect().Name() != dialect.PG {
		return nil
	}
	start := partitionRangeStart(key)
	end := start + partitionSpan
	stmt := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s PARTITION OF events FOR VALUES FROM (%d) TO (%d)",
		partitionName(start), start, end,
	)
	_, err := db.ExecContext(ctx, stmt)
	return err
}

// EnsurePartitions creates partitions for every day in
// [from, from+days), using event.PartitionKeyFor to derive each day's
// key.
func EnsurePartitions(ctx context.Context, db bun.IDB, from time.Time, days int) error {
	for i := 0; i < days; i++ {
		key := event.PartitionKeyFor(from.AddDate(0, 0, i))
		if err := createPartition(ctx, db, key); err != nil {
			return err
		}
	}
	return nil
}

// PartitionMaintainer periodically ensures that partitions exist for
// the next partitionLookahead days, so ingestion never blocks on a
// missing partition for any reasonably near-future ScheduledAt.
type PartitionMaintainer struct {
	db       *bun.DB
	task     internal.TimerTask
	interval time.Duration
	log      *slog.Logger
	running  atomic.Bool
}

// NewPartitionMaintainer creates a PartitionMaintainer that runs its
// bootstrap sweep every interval.
func NewPartitionMaintainer(db *bun.DB, interval time.Duration, log *slog.Logger) *PartitionMaintainer {
	return &PartitionMaintainer{db: db, interval: interval, log: log}
}

func (m *PartitionMaintainer) tick(ctx context.Context) {
	if err := EnsurePartitions(ctx, m.db, time.Now(), partitionLookahead); err != nil {
		m.log.Error("partition bootstrap failed", "err", err)
	}
}

// Start begins the periodic partition bootstrap sweep. The first sweep
// runs as soon as the background loop starts, not after the first
// interval elapses, so a cold-started process does not sit exposed to
// a missing partition for a full interval.
func (m *PartitionMaintainer) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("partition maintainer already running")
	}
	m.task.Start(ctx, m.tick, m.interval)
	return nil
}

// Stop stops the bootstrap sweep.
func (m *PartitionMaintainer) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	<-m.task.Stop()
}
