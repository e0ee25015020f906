package store

import (
	"context"
	"strings"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/uptrace/bun"
)

// Store implements eventsched.Store on top of a bun.DB, supporting
// both PostgreSQL (production) and SQLite (tests) via bun's dialect
// abstraction.
type Store struct {
	db *bun.DB
}

// NewStore creates a new Store.
//
// The provided *bun.DB must be properly configured and connected.
// InitDB must be run before use.
func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

var _ eventsched.Store = (*Store)(nil)

// isUniqueViolation reports whether err is a unique-constraint
// violation, recognizing both the Postgres and SQLite error shapes so
// Insert can map either to ErrDuplicate without a dialect switch at
// the call site.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Insert persists ev with status Pending.
//
// If the dedup key (external_job_id, source, scheduled_at,
// partition_key) already exists, Insert returns eventsched.ErrDuplicate
// and ev is left unmodified.
func (s *Store) Insert(ctx context.Context, ev *event.Event) error {
	model := fromEvent(ev)
	_, err := s.db.NewInsert().Model(model).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return eventsched.ErrDuplicate
		}
		return err
	}
	ev.Id = model.Id
	ev.Status = model.Status
	ev.PartitionKey = model.PartitionKey
	ev.CreatedAt = model.CreatedAt
	ev.UpdatedAt = model.UpdatedAt
	return nil
}
