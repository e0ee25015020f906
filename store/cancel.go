package store

import (
	"context"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/google/uuid"
)

// CancelByID transitions id from Pending to Cancelled.
//
// Returns eventsched.ErrNotFound if id does not exist, or
// eventsched.ErrInvalidState if it exists but is not currently
// Pending.
func (s *Store) CancelByID(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Cancelled).
		Set("updated_at = current_timestamp").
		Where("id = ?", id).
		Where("status = ?", event.Pending).
		Exec(ctx)
	if err != nil {
		return err
	}
	if isAffected(res) {
		return nil
	}

	exists, err := s.db.NewSelect().
		Model((*eventModel)(nil)).
		Where("id = ?", id).
		Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return eventsched.ErrNotFound
	}
	return eventsched.ErrInvalidState
}

// CancelByExternalJobID transitions every Pending row matching extID
// to Cancelled and returns the number affected.
func (s *Store) CancelByExternalJobID(ctx context.Context, extID string) (int64, error) {
	res, err := s.db.NewUpdate().
		Model((*eventModel)(nil)).
		Set("status = ?", event.Cancelled).
		Set("updated_at = current_timestamp").
		Where("external_job_id = ?", extID).
		Where("status = ?", event.Pending).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return getAffected(res), nil
}
