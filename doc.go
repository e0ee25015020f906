// Package eventsched provides the core delivery pipeline of an
// on-premise scheduled event orchestrator.
//
// # Overview
//
// Clients submit events with a future execution time, a delivery
// channel (HTTP webhook or message-broker topic), and an opaque JSON
// payload. The orchestrator guarantees that each event is delivered
// at-or-after its scheduled time, exactly once per successful
// completion, with bounded retries before being parked in a
// dead-letter state.
//
// The package does not mandate any particular storage, ingestion, or
// transport backend. Package store provides a Postgres-backed Store;
// package ingest provides a Kafka-backed ingestion buffer and
// deduplicator; package delivery provides the HTTP/broker dispatch
// channels.
//
// # Delivery Semantics
//
// The system provides at-least-once delivery. An event may be
// delivered more than once if a worker crashes before completing it,
// the lease expires, or a completion races a lease reclaim. Delivery
// destinations must therefore be idempotent with respect to retries.
//
// # Lease Model
//
// When an event is claimed, it transitions from Pending to Processing
// and receives a lease (LockExpires). While the lease is valid, the
// event is not eligible for claim by another worker. If the lease
// expires before completion, the RecoveryLoop returns it to Pending.
//
// # State Machine
//
// Events follow this lifecycle:
//
//	Pending    -> Processing
//	Processing -> Completed
//	Processing -> Pending      (retriable failure or lease expiry)
//	Processing -> DeadLetter
//	Pending    -> Cancelled
//
// Terminal states (Completed, DeadLetter, Cancelled) are not retried.
//
// # Retry Policy
//
// Retry behavior is controlled by RetryCount vs MaxRetries.
// A retriable delivery failure returns the event to Pending if
// retry_count+1 <= max_retries; otherwise, like any terminal-classified
// failure, it drives the event to DeadLetter. No artificial delay is
// injected between attempts: ScheduledAt is immutable, so a returned
// event is due again as soon as the next poll tick runs.
//
// # Poller
//
// Poller coordinates claiming and dispatching events:
//
//   - periodically claims due events from the Store
//   - dispatches one goroutine per claimed event (unbounded per-batch
//     concurrency — this is the one place this package's shape
//     diverges from a bounded worker pool)
//   - hands each event to a Deliverer and records the outcome
//     via an OutcomeWriter
//   - supports graceful shutdown with timeout
//
// Poller does not guarantee exactly-once delivery.
//
// # Interfaces
//
// eventsched defines the following primary interfaces:
//
//	Inserter    — enqueue events
//	Claimer     — lease, complete, and retry/kill events
//	Canceller   — withdraw pending events
//	Observer    — inspect event state
//	Maintenance — lease recovery and retention
//
// These interfaces let storage implementations be plugged in without
// coupling the core logic to a specific database.
//
// # Concurrency Model
//
// The only cross-process coordination is the row-level pessimistic
// lock acquired by ClaimDue. There is no leader election and no
// distributed lock service; RecoveryLoop and RetentionLoop are
// idempotent and safe to run on every instance concurrently.
//
// # Storage Expectations
//
// Implementations of Claimer must ensure atomic state transitions,
// durable persistence, and correct lease semantics under concurrent
// claimers (skip-locked or equivalent).
package eventsched
