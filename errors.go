package eventsched

import "errors"

var (
	// ErrDuplicate indicates that an Insert collided with the dedup key
	// UNIQUE(external_job_id, source, scheduled_at, partition_key).
	//
	// This is not a failure: it means some submission (this one or a
	// racing duplicate) is already durably stored, and the caller
	// should treat the submission as successfully queued.
	ErrDuplicate = errors.New("duplicate event")

	// ErrNotFound indicates that no row exists for the requested id or
	// external job id.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidState indicates a requested transition is illegal from
	// the event's current status (e.g. cancelling an event that is
	// already Processing).
	ErrInvalidState = errors.New("invalid event state")

	// ErrNotOwner indicates that the caller's worker identity does not
	// match the event's current LockedBy, closing the lost-update
	// window where a reclaimed lease's former holder still writes an
	// outcome. Package store does not return it: its outcome writes
	// report a LockedBy mismatch as ErrLeaseLost.
	ErrNotOwner = errors.New("caller does not hold the lease")

	// ErrLeaseLost indicates an outcome write raced against lease
	// expiry or recovery and the event had already been reclaimed by
	// another worker or transitioned by the time the write landed.
	ErrLeaseLost = errors.New("lease lost")

	// ErrBadStatus indicates an invalid status was supplied to a
	// status-filtered operation. No Store method takes a status
	// argument, so none returns it.
	ErrBadStatus = errors.New("bad event status")
)
