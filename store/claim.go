package store

import (
	"context"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// ClaimDue performs atomic state transitions using a single
// UPDATE ... WHERE id IN (subquery) ... RETURNING statement, to avoid
// a race between selection and the Processing transition.
//
// A row is eligible if:
//
//   - status = Pending AND scheduled_at <= now
//     OR
//   - status = Processing AND lock_expires < now
//
// Eligible rows, ordered by scheduled_at ascending up to limit, are
// transitioned to Processing under workerID with lock_expires set to
// leaseUntil.
func (s *Store) ClaimDue(ctx context.Context, workerID string, now, leaseUntil time.Time, limit int) ([]*event.Event, error) {
	subQuery := s.db.NewSelect().
		Model((*eventModel)(nil)).
		Column("id").
		Where("scheduled_at <= ?", now).
		WhereGroup("AND", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("status = ?", event.Pending).
				WhereOr("status = ? AND lock_expires < ?", event.Processing, now)
		}).
		Order("scheduled_at ASC").
		Limit(limit)
	if s.db.Dialect().Name() == dialect.PG {
		subQuery = subQuery.For("UPDATE SKIP LOCKED")
	}

	var models []*eventModel
	err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Processing).
		Set("locked_by = ?", workerID).
		Set("lock_expires = ?", leaseUntil).
		Set("updated_at = ?", now).
		Where("id IN (?)", subQuery).
		Returning("*").
		Scan(ctx, &models)
	if err != nil {
		return nil, err
	}

	events := make([]*event.Event, len(models))
	for i, m := range models {
		events[i] = m.toEvent()
	}
	return events, nil
}

// Complete transitions id from Processing to Completed, provided
// workerID still holds the lease.
func (s *Store) Complete(ctx context.Context, id uuid.UUID, workerID string) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Completed).
		Set("locked_by = NULL").
		Set("lock_expires = NULL").
		Set("executed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", event.Processing).
		Where("locked_by = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return eventsched.ErrLeaseLost
	}
	return nil
}

// FailRetriable increments retry_count, records lastError, clears the
// lease and returns id to Pending, provided workerID still holds the
// lease.
func (s *Store) FailRetriable(ctx context.Context, id uuid.UUID, workerID string, lastError string) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Pending).
		Set("retry_count = retry_count + 1").
		Set("last_error = ?", lastError).
		Set("locked_by = NULL").
		Set("lock_expires = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", event.Processing).
		Where("locked_by = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return eventsched.ErrLeaseLost
	}
	return nil
}

// FailTerminal increments retry_count, records lastError, and
// transitions id to DeadLetter, provided workerID still holds the
// lease.
func (s *Store) FailTerminal(ctx context.Context, id uuid.UUID, workerID string, lastError string) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.DeadLetter).
		Set("retry_count = retry_count + 1").
		Set("last_error = ?", lastError).
		Set("locked_by = NULL").
		Set("lock_expires = NULL").
		Set("executed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", event.Processing).
		Where("locked_by = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return eventsched.ErrLeaseLost
	}
	return nil
}

// RescheduleUnclaim returns a just-claimed row to Pending without
// touching retry_count or last_error, provided workerID still holds
// the lease.
func (s *Store) RescheduleUnclaim(ctx context.Context, id uuid.UUID, workerID string) error {
	now := time.Now()
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Pending).
		Set("locked_by = NULL").
		Set("lock_expires = NULL").
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("status = ?", event.Processing).
		Where("locked_by = ?", workerID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if !isAffected(res) {
		return eventsched.ErrLeaseLost
	}
	return nil
}
