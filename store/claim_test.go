package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	estore "github.com/fenwick-io/eventsched/store"
)

func insertDue(t *testing.T, ctx context.Context, s *estore.Store, extID string) *event.Event {
	t.Helper()
	sub := newSubmission(extID)
	sub.ScheduledAt = time.Now().Add(-time.Second)
	ev := &event.Event{Submission: sub, MaxRetries: 2}
	if err := s.Insert(ctx, ev); err != nil {
		t.Fatal(err)
	}
	return ev
}

func TestClaimDueThenComplete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	insertDue(t, ctx, s, "job-claim-1")

	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(claimed) != 1 {
		t.Fatalf("expected 1 claimed event, got %d", len(claimed))
	}
	ev := claimed[0]
	if ev.Status != event.Processing {
		t.Fatalf("expected Processing, got %v", ev.Status)
	}

	if err := s.Complete(ctx, ev.Id, "worker-a"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByID(ctx, ev.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.Completed {
		t.Fatalf("expected Completed, got %v", got.Status)
	}
}

func TestClaimDueSkipsDisjointBatches(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	insertDue(t, ctx, s, "job-claim-2")

	first, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 1 {
		t.Fatalf("expected 1 event claimed by worker-a, got %d", len(first))
	}

	second, err := s.ClaimDue(ctx, "worker-b", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(second) != 0 {
		t.Fatalf("expected worker-b to claim nothing while lease is live, got %d", len(second))
	}
}

func TestCompleteRejectsWrongWorker(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	insertDue(t, ctx, s, "job-claim-3")
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}

	err = s.Complete(ctx, claimed[0].Id, "worker-b")
	if !errors.Is(err, eventsched.ErrLeaseLost) {
		t.Fatalf("expected ErrLeaseLost, got %v", err)
	}
}

func TestFailRetriableReturnsToPending(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	ev := insertDue(t, ctx, s, "job-claim-4")
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.FailRetriable(ctx, claimed[0].Id, "worker-a", "connection reset"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByID(ctx, ev.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.Pending {
		t.Fatalf("expected Pending, got %v", got.Status)
	}
	if got.RetryCount != 1 {
		t.Fatalf("expected retry_count 1, got %d", got.RetryCount)
	}
	if got.LastError != "connection reset" {
		t.Fatalf("unexpected last_error %q", got.LastError)
	}
}

func TestFailTerminalDeadLetters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	ev := insertDue(t, ctx, s, "job-claim-5")
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.FailTerminal(ctx, claimed[0].Id, "worker-a", "400 bad request"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByID(ctx, ev.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.DeadLetter {
		t.Fatalf("expected DeadLetter, got %v", got.Status)
	}
	if got.ExecutedAt == nil {
		t.Fatal("expected ExecutedAt to be set")
	}
}

func TestRescheduleUnclaim(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	ev := insertDue(t, ctx, s, "job-claim-6")
	claimed, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}

	if err := s.RescheduleUnclaim(ctx, claimed[0].Id, "worker-a"); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetByID(ctx, ev.Id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != event.Pending {
		t.Fatalf("expected Pending, got %v", got.Status)
	}
	if got.RetryCount != 0 {
		t.Fatalf("expected retry_count unchanged, got %d", got.RetryCount)
	}
}

func TestClaimDueReclaimsExpiredLease(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := estore.NewStore(db)

	insertDue(t, ctx, s, "job-claim-7")
	_, err := s.ClaimDue(ctx, "worker-a", time.Now(), time.Now().Add(50*time.Millisecond), 10)
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(80 * time.Millisecond)

	reclaimed, err := s.ClaimDue(ctx, "worker-b", time.Now(), time.Now().Add(time.Minute), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(reclaimed) != 1 {
		t.Fatal("expected expired lease to be reclaimed")
	}
}
