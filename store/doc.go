// Package store provides a bun-based implementation of
// eventsched.Store.
//
// # Overview
//
// The backend provides:
//
//   - durable persistence of events
//   - atomic claim-and-transition via UPDATE ... RETURNING
//   - lease semantics backed by locked_by/lock_expires
//   - a unique dedup index over (external_job_id, source, scheduled_at,
//     partition_key)
//   - Postgres range partitioning by partition_key, in ten-day buckets,
//     bootstrapped and kept ahead of schedule by PartitionMaintainer
//
// It targets PostgreSQL in production and SQLite for tests, subject to
// each dialect's transactional guarantees. Partition DDL is a no-op on
// dialects other than PostgreSQL.
//
// # Concurrency Model
//
// ClaimDue uses a single atomic UPDATE statement with a
// FOR UPDATE SKIP LOCKED subquery (Postgres only; SQLite's single
// writer already serializes this) to avoid races between selection
// and the Processing transition.
//
// Correct behavior under high concurrency depends on proper indexing,
// the database's isolation guarantees, and its write contention
// characteristics. SQLite users should enable WAL mode and configure
// an appropriate busy_timeout.
//
// # Schema
//
// InitDB (or MustInitDB) creates the events table and the indexes
// ClaimDue, ReleaseExpired and DeleteTerminalBatch depend on, inside a
// single transaction. InitDB is idempotent and performs no destructive
// migrations; schema evolution beyond additive indexes must be handled
// externally.
//
// # Database Lifecycle
//
// This package does not manage connection pooling, migrations, or
// database lifecycle. The caller is responsible for creating and
// configuring *bun.DB, connection limits, WAL/busy_timeout
// configuration for SQLite, and running InitDB before use.
//
// # Limitations
//
// The backend uses status and timestamp columns to implement lease
// semantics; it does not use lease tokens or optimistic locking
// versions. Exactly-once processing is not guaranteed: delivery
// semantics remain at-least-once.
package store
