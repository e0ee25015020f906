package store

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// postgresCreateTableSQL declares events as a partitioned parent table.
// bun's query builder has no way to emit PARTITION BY, so the
// Postgres path is raw SQL instead of NewCreateTable(). Postgres
// requires every unique constraint on a partitioned table, including
// the primary key, to include the partition key column; the primary
// key is therefore the pair (id, partition_key) rather than id alone.
// id is a uuid.New() value, so this does not weaken uniqueness in
// practice.
const postgresCreateTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	id uuid NOT NULL,
	external_job_id text NOT NULL,
	source text NOT NULL,
	scheduled_at timestamptz NOT NULL,
	delivery_type smallint NOT NULL,
	destination text NOT NULL,
	payload bytea,
	status smallint NOT NULL DEFAULT 0,
	retry_count integer NOT NULL DEFAULT 0,
	max_retries integer NOT NULL DEFAULT 0,
	last_error text NOT NULL DEFAULT '',
	locked_by text,
	lock_expires timestamptz,
	partition_key bigint NOT NULL,
	created_at timestamptz NOT NULL DEFAULT current_timestamp,
	updated_at timestamptz NOT NULL DEFAULT current_timestamp,
	executed_at timestamptz,
	PRIMARY KEY (id, partition_key)
) PARTITION BY RANGE (partition_key)
`

func createTable(ctx context.Context, db bun.IDB) error {
	if db.Dialect().Name() == dialect.PG {
		_, err := db.ExecContext(ctx, postgresCreateTableSQL)
		return err
	}
	_, err := db.NewCreateTable().
		Model((*eventModel)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func createDedupIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_dedup").
		Column("external_job_id", "source", "scheduled_at", "partition_key").
		Unique().
		IfNotExists().
		Exec(ctx)
	return err
}

func createClaimIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_status_scheduled").
		Column("status", "scheduled_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createLeaseIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_status_lock").
		Column("status", "lock_expires").
		IfNotExists().
		Exec(ctx)
	return err
}

func createRetentionIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_status_executed").
		Column("status", "executed_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func createExternalJobIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_external_job").
		Column("external_job_id").
		IfNotExists().
		Exec(ctx)
	return err
}

func createPartitionIndex(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateIndex().
		Model((*eventModel)(nil)).
		Index("idx_events_partition").
		Column("partition_key").
		IfNotExists().
		Exec(ctx)
	return err
}

func initDB(ctx context.Context, db *bun.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	steps := []func(context.Context, bun.IDB) error{
		createTable,
		createDedupIndex,
		createClaimIndex,
		createLeaseIndex,
		createRetentionIndex,
		createExternalJobIndex,
		createPartitionIndex,
	}
	for _, step := range steps {
		if err := step(ctx, tx); err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// InitDB initializes the database schema required by the store
// package.
//
// It creates the events table and required indexes, including the
// unique dedup index over (external_job_id, source, scheduled_at,
// partition_key), inside a single transaction. If any step fails, the
// transaction is rolled back.
//
// InitDB is idempotent and may be safely called multiple times. It
// does not drop or modify existing tables beyond creating missing
// objects.
func InitDB(ctx context.Context, db *bun.DB) error {
	return initDB(ctx, db)
}

// MustInitDB behaves like InitDB but panics if initialization fails.
func MustInitDB(ctx context.Context, db *bun.DB) {
	if err := initDB(ctx, db); err != nil {
		panic(err)
	}
}
