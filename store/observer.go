package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/google/uuid"
)

// GetByID returns the event identified by id, or
// eventsched.ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error) {
	var m eventModel
	err := s.db.NewSelect().
		Model(&m).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsched.ErrNotFound
		}
		return nil, err
	}
	return m.toEvent(), nil
}

// GetByExternalJobID returns the most recently created event matching
// extID, or eventsched.ErrNotFound.
func (s *Store) GetByExternalJobID(ctx context.Context, extID string) (*event.Event, error) {
	var m eventModel
	err := s.db.NewSelect().
		Model(&m).
		Where("external_job_id = ?", extID).
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eventsched.ErrNotFound
		}
		return nil, err
	}
	return m.toEvent(), nil
}

// ListByExternalJobID returns every event matching extID, most recent
// first.
func (s *Store) ListByExternalJobID(ctx context.Context, extID string) ([]*event.Event, error) {
	var models []*eventModel
	err := s.db.NewSelect().
		Model(&models).
		Where("external_job_id = ?", extID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]*event.Event, len(models))
	for i, m := range models {
		events[i] = m.toEvent()
	}
	return events, nil
}

// Exists reports whether a row already satisfies the dedup key
// (external_job_id, source, scheduled_at, partition_key). partition_key
// is derived from scheduled_at, so it need not be passed separately.
func (s *Store) Exists(ctx context.Context, externalJobID, source string, scheduledAt time.Time) (bool, error) {
	return s.db.NewSelect().
		Model((*eventModel)(nil)).
		Where("external_job_id = ?", externalJobID).
		Where("source = ?", source).
		Where("scheduled_at = ?", scheduledAt).
		Exists(ctx)
}

// Statistics returns aggregate counts grouped by status.
//
// This performs a single grouped aggregate query and is not meant to
// be called from any hot path.
func (s *Store) Statistics(ctx context.Context) (map[event.Status]int64, error) {
	var rows []struct {
		Status event.Status `bun:"status"`
		Count  int64        `bun:"count"`
	}
	err := s.db.NewSelect().
		Model((*eventModel)(nil)).
		ColumnExpr("status").
		ColumnExpr("count(*) AS count").
		Group("status").
		Scan(ctx, &rows)
	if err != nil {
		return nil, err
	}
	ret := make(map[event.Status]int64, len(rows))
	for _, r := range rows {
		ret[r.Status] = r.Count
	}
	return ret, nil
}
