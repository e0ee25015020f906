package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/fenwick-io/eventsched/event"
	estore "github.com/fenwick-io/eventsched/store"
)

func TestReleaseExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	ev := insertDue(t, ctx, s, "job-clean-1")
	_, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(-time.Second), 10)
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.ReleaseExpired(ctx, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 released, got %d", n)
	}

	got, err := s.GetByID(ctx, ev.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.Pending {
		t.Fatalf("expected Pending, got %v", got.Status)
	}
	if got.LockedBy != nil {
		t.Fatal("expected locked_by cleared")
	}
}

func TestDeleteTerminalBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	ev := insertDue(t, ctx, s, "job-clean-2")
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Complete(ctx, claimed[0].Id, "worker-a"); err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteTerminalBatch(ctx, time.Now().Add(time.Hour), 100)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}

	_, err = s.GetByID(ctx, ev.Id)
	if err == nil {
		t.Fatal("expected ErrNotFound after deletion")
	}
}

func TestDeleteTerminalBatchLeavesRowsNewerThanCutoff(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	claimed, err := insertAndComplete(t, ctx, s, "job-clean-3")
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.DeleteTerminalBatch(ctx, time.Now().Add(-time.Hour), 100)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Fatalf("expected 0 deleted with a cutoff before executed_at, got %d", n)
	}

	if _, err := s.GetByID(ctx, claimed.Id); err != nil {
		t.Fatal(err)
	}
}

func insertAndComplete(t *testing.T, ctx context.Context, s *estore.Store, extID string) (*event.Event, error) {
	t.Helper()
	ev := insertDue(t, ctx, s, extID)
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		return nil, err
	}
	if err := s.Complete(ctx, claimed[0].Id, "worker-a"); err != nil {
		return nil, err
	}
	return ev, nil
}
