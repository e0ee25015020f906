package store

import (
	"context"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/uptrace/bun"
)

// ReleaseExpired returns every Processing row whose lease has expired
// back to Pending, clearing locked_by and lock_expires, and reports
// how many rows were affected.
//
// This is a set-based UPDATE and is safe to run concurrently from
// multiple instances: each row transitions at most once per run.
func (s *Store) ReleaseExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Pending).
		Set("locked_by = NULL").
		Set("lock_expires = NULL").
		Set("updated_at = ?", now).
		Where("status = ?", event.Processing).
		Where("lock_expires < ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}

// DeleteTerminalBatch deletes up to batchSize rows in a terminal
// status (Completed, DeadLetter, Cancelled) that are older than
// cutoff, and reports how many were deleted.
//
// Completed and DeadLetter rows are compared against executed_at;
// Cancelled rows never receive an executed_at and are compared
// against updated_at instead. Non-terminal rows are never touched.
//
// Deletion uses an id IN (subquery ... LIMIT batchSize) shape, the
// same pattern ClaimDue uses to bound an otherwise set-based statement
// to a fixed batch size.
func (s *Store) DeleteTerminalBatch(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	subQuery := s.db.NewSelect().
		Model((*eventModel)(nil)).
		Column("id").
		WhereGroup("AND", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("status IN (?, ?) AND executed_at < ?", event.Completed, event.DeadLetter, cutoff).
				WhereOr("status = ? AND updated_at < ?", event.Cancelled, cutoff)
		}).
		Limit(batchSize)

	res, err := s.db.NewDelete().
		Model((*eventModel)(nil)).
		Where("id IN (?)", subQuery).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
