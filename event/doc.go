// Package event defines the stateful representation of a scheduled
// delivery unit within the orchestrator.
//
// An Event extends submission.Submission with delivery state, lease,
// and scheduling metadata. It represents a submission as stored and
// managed by the event store.
//
// Unlike submission.Submission, Event contains state-machine fields
// such as Status, RetryCount, lease information, and scheduling
// timestamps. These fields are maintained by the store and by the
// poller/outcome-writer logic.
//
// Event values are typically returned by ClaimDue and passed back to
// the store for state transitions (Complete, FailRetriable, etc.).
//
// Event is not intended to be constructed manually by user code. Its
// fields reflect the authoritative state stored by the backend.
package event
