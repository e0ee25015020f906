package ingest_test

import (
	"context"
	"testing"
	"time"

	"github.com/fenwick-io/eventsched/ingest"
)

type mockObserverExists struct {
	calls   int
	exists  bool
	err     error
	lastKey [3]string
}

func (m *mockObserverExists) Exists(ctx context.Context, externalJobID, source string, scheduledAt time.Time) (bool, error) {
	m.calls++
	m.lastKey = [3]string{externalJobID, source, scheduledAt.String()}
	return m.exists, m.err
}

func TestDeduplicatorTier1ShortCircuitsTier2(t *testing.T) {
	tier2 := &mockObserverExists{}
	d, err := ingest.NewDeduplicator(tier2, 16)
	if err != nil {
		t.Fatal(err)
	}

	if d.Seen("job-1") {
		t.Fatal("expected job-1 to be unseen before Mark")
	}

	d.Mark("job-1")

	if !d.Seen("job-1") {
		t.Fatal("expected job-1 to be seen after Mark")
	}
	if tier2.calls != 0 {
		t.Fatalf("expected Seen to never consult tier 2, got %d calls", tier2.calls)
	}
}

func TestDeduplicatorTier2Delegates(t *testing.T) {
	tier2 := &mockObserverExists{exists: true}
	d, err := ingest.NewDeduplicator(tier2, 16)
	if err != nil {
		t.Fatal(err)
	}

	dup, err := d.IsDuplicate(context.Background(), "ext-1", "billing", time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !dup {
		t.Fatal("expected IsDuplicate to report true")
	}
	if tier2.calls != 1 {
		t.Fatalf("expected exactly one tier 2 call, got %d", tier2.calls)
	}
}

func TestDeduplicatorDefaultCapacity(t *testing.T) {
	tier2 := &mockObserverExists{}
	if _, err := ingest.NewDeduplicator(tier2, 0); err != nil {
		t.Fatalf("expected zero capacity to fall back to the default, got error: %v", err)
	}
	if _, err := ingest.NewDeduplicator(tier2, -1); err != nil {
		t.Fatalf("expected negative capacity to fall back to the default, got error: %v", err)
	}
}
