package store_test

import (
	"context"
	"database/sql"
	"testing"

	estore "github.com/fenwick-io/eventsched/store"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	sqlDB, err := sql.Open("sqlite", "file::memory:?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1) // important for sqlite
	db := bun.NewDB(sqlDB, sqlitedialect.New())
	ctx := context.Background()
	if err := estore.InitDB(ctx, db); err != nil {
		t.Fatal(err)
	}
	return db
}

func newSubmission(extID string) submission.Submission {
	return submission.Submission{
		ExternalJobId: extID,
		Source:        "billing",
		DeliveryType:  submission.HTTP,
		Destination:   "https://example.test/webhook",
		Payload:       []byte(`{"amount":100}`),
	}
}

func newUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewRandom()
	if err != nil {
		t.Fatal(err)
	}
	return id
}
