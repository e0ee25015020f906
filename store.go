package eventsched

import (
	"context"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/google/uuid"
)

// Inserter is the write-side entry point of the event store.
type Inserter interface {
	// Insert persists ev with status Pending. If the dedup key
	// (ExternalJobId, Source, ScheduledAt, PartitionKey) already
	// exists, Insert returns ErrDuplicate and ev is not considered
	// enqueued twice.
	//
	// Insert assigns Id, PartitionKey, CreatedAt and UpdatedAt on ev
	// before returning successfully. Insert must not mutate ev after
	// returning an error.
	Insert(ctx context.Context, ev *event.Event) error
}

// Claimer implements the pessimistic-lease claim protocol and the
// single-row state transitions that follow a claim.
type Claimer interface {
	// ClaimDue atomically selects up to limit rows eligible for
	// delivery — Pending with ScheduledAt <= now, or Processing with
	// an expired lease — orders them by ScheduledAt ascending, and
	// transitions them to Processing under workerID with a lease
	// expiring at leaseUntil. Implementations must use skip-locked
	// row-level locking so that concurrent callers claim disjoint
	// batches.
	ClaimDue(ctx context.Context, workerID string, now, leaseUntil time.Time, limit int) ([]*event.Event, error)

	// Complete transitions id from Processing to Completed. The
	// caller must currently hold the lease (LockedBy == workerID); a
	// mismatch, like a missing or non-Processing row, returns
	// ErrLeaseLost.
	Complete(ctx context.Context, id uuid.UUID, workerID string) error

	// FailRetriable increments RetryCount, records a truncated
	// lastError, clears the lease and returns id to Pending for a
	// future poll tick to reclaim. Requires retryCount+1 <= maxRetries;
	// callers must check that before calling (see OutcomeWriter).
	FailRetriable(ctx context.Context, id uuid.UUID, workerID string, lastError string) error

	// FailTerminal increments RetryCount, records a truncated
	// lastError, sets ExecutedAt and transitions id to DeadLetter.
	FailTerminal(ctx context.Context, id uuid.UUID, workerID string, lastError string) error

	// RescheduleUnclaim returns a just-claimed row to Pending without
	// incrementing RetryCount or recording an error. Used by the
	// Poller when a claimed row's ScheduledAt is still in the future.
	RescheduleUnclaim(ctx context.Context, id uuid.UUID, workerID string) error
}

// Canceller implements the admin cancellation operations.
type Canceller interface {
	// CancelByID transitions id from Pending to Cancelled. Returns
	// ErrInvalidState if id is not currently Pending, ErrNotFound if
	// id does not exist.
	CancelByID(ctx context.Context, id uuid.UUID) error

	// CancelByExternalJobID transitions every Pending row matching
	// extID to Cancelled and returns the number affected.
	CancelByExternalJobID(ctx context.Context, extID string) (int64, error)
}

// Observer provides read-only access to events. It does not
// participate in lease handling and must not modify event state.
type Observer interface {
	// GetByID returns the event identified by id, or ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*event.Event, error)

	// GetByExternalJobID returns the most recently created event
	// matching extID, or ErrNotFound.
	GetByExternalJobID(ctx context.Context, extID string) (*event.Event, error)

	// ListByExternalJobID returns every event matching extID, most
	// recent first.
	ListByExternalJobID(ctx context.Context, extID string) ([]*event.Event, error)

	// Exists reports whether a row already satisfies the dedup key.
	// It backs the second tier of the ingestion deduplicator.
	Exists(ctx context.Context, externalJobID, source string, scheduledAt time.Time) (bool, error)

	// Statistics returns aggregate counts grouped by status. This is a
	// full-scan aggregate and is not meant for any hot path.
	Statistics(ctx context.Context) (map[event.Status]int64, error)
}

// Maintenance implements the two background maintenance queries: lease
// recovery and retention.
type Maintenance interface {
	// ReleaseExpired returns every Processing row whose lease has
	// expired back to Pending and reports how many rows were affected.
	ReleaseExpired(ctx context.Context, now time.Time) (int64, error)

	// DeleteTerminalBatch deletes up to batchSize terminal rows with
	// ExecutedAt < cutoff (UpdatedAt < cutoff for Cancelled rows, which
	// have no ExecutedAt) and reports how many were deleted.
	// Non-terminal rows are never touched.
	DeleteTerminalBatch(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// Store is the full contract the core consumes from a durable backend.
// A concrete implementation lives in package store.
type Store interface {
	Inserter
	Claimer
	Canceller
	Observer
	Maintenance
}
