package eventsched

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/google/uuid"
)

type delivererStub struct {
	mu      sync.Mutex
	results map[string]DeliveryResult
	calls   []string
	panicOn string
}

func (d *delivererStub) Deliver(ctx context.Context, ev *DeliverableEvent) DeliveryResult {
	d.mu.Lock()
	d.calls = append(d.calls, ev.ExternalJobID)
	d.mu.Unlock()
	if ev.ExternalJobID == d.panicOn {
		panic("boom")
	}
	if r, ok := d.results[ev.ExternalJobID]; ok {
		return r
	}
	return DeliveryResult{Success: true}
}

func (d *delivererStub) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.calls)
}

func TestPollerDeliversClaimedEvents(t *testing.T) {
	ev := &event.Event{
		Id:         uuid.New(),
		Submission: submission.Submission{ExternalJobId: "job-1", ScheduledAt: time.Now().Add(-time.Minute), DeliveryType: submission.HTTP, Destination: "http://example.com"},
	}
	claimer := &claimerStub{claimResult: []*event.Event{ev}}
	deliverer := &delivererStub{results: map[string]DeliveryResult{}}
	outcome := NewOutcomeWriter(claimer, nil, silentLogger())
	p := NewPoller(claimer, deliverer, outcome, nil, &PollerConfig{BatchSize: 10, PollInterval: time.Hour, LeaseDuration: time.Minute}, silentLogger())

	p.tick(context.Background())
	p.inFlight.Wait()

	if deliverer.callCount() != 1 {
		t.Fatalf("expected deliverer to be called once, got %d", deliverer.callCount())
	}
	if len(claimer.completedIDs) != 1 {
		t.Fatalf("expected event to be completed, completed=%v", claimer.completedIDs)
	}
}

func TestPollerUnclaimsNotYetDueEvent(t *testing.T) {
	ev := &event.Event{
		Id:         uuid.New(),
		Submission: submission.Submission{ExternalJobId: "job-future", ScheduledAt: time.Now().Add(time.Hour), DeliveryType: submission.HTTP, Destination: "http://example.com"},
	}
	claimer := &claimerStub{claimResult: []*event.Event{ev}}
	deliverer := &delivererStub{results: map[string]DeliveryResult{}}
	outcome := NewOutcomeWriter(claimer, nil, silentLogger())
	p := NewPoller(claimer, deliverer, outcome, nil, &PollerConfig{BatchSize: 10, PollInterval: time.Hour, LeaseDuration: time.Minute}, silentLogger())

	p.tick(context.Background())
	p.inFlight.Wait()

	if deliverer.callCount() != 0 {
		t.Fatalf("did not expect deliverer to be called for a not-yet-due event")
	}
	if len(claimer.unclaimedIDs) != 1 {
		t.Fatalf("expected event to be unclaimed, unclaimed=%v", claimer.unclaimedIDs)
	}
}

func TestPollerRecoversFromDelivererPanic(t *testing.T) {
	ev := &event.Event{
		Id:         uuid.New(),
		Submission: submission.Submission{ExternalJobId: "job-panic", ScheduledAt: time.Now().Add(-time.Minute), DeliveryType: submission.HTTP, Destination: "http://example.com"},
		MaxRetries: 3,
	}
	claimer := &claimerStub{claimResult: []*event.Event{ev}}
	deliverer := &delivererStub{results: map[string]DeliveryResult{}, panicOn: "job-panic"}
	outcome := NewOutcomeWriter(claimer, nil, silentLogger())
	p := NewPoller(claimer, deliverer, outcome, nil, &PollerConfig{BatchSize: 10, PollInterval: time.Hour, LeaseDuration: time.Minute}, silentLogger())

	p.tick(context.Background())
	p.inFlight.Wait()

	if len(claimer.retriedIDs) != 1 {
		t.Fatalf("expected a recovered panic to be treated as retriable, retried=%v", claimer.retriedIDs)
	}
}

func TestPollerStartStopLifecycle(t *testing.T) {
	claimer := &claimerStub{}
	deliverer := &delivererStub{results: map[string]DeliveryResult{}}
	outcome := NewOutcomeWriter(claimer, nil, silentLogger())
	p := NewPoller(claimer, deliverer, outcome, nil, &PollerConfig{BatchSize: 10, PollInterval: time.Millisecond, LeaseDuration: time.Minute}, silentLogger())

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error starting poller: %v", err)
	}
	if err := p.Start(context.Background()); err != ErrDoubleStarted {
		t.Fatalf("expected ErrDoubleStarted on second Start, got %v", err)
	}
	if err := p.Stop(time.Second); err != nil {
		t.Fatalf("unexpected error stopping poller: %v", err)
	}
	if err := p.Stop(time.Second); err != ErrDoubleStopped {
		t.Fatalf("expected ErrDoubleStopped on second Stop, got %v", err)
	}
}

func TestPollerWorkerIDIsStable(t *testing.T) {
	claimer := &claimerStub{}
	deliverer := &delivererStub{results: map[string]DeliveryResult{}}
	outcome := NewOutcomeWriter(claimer, nil, silentLogger())
	p := NewPoller(claimer, deliverer, outcome, nil, &PollerConfig{BatchSize: 10, PollInterval: time.Hour, LeaseDuration: time.Minute}, silentLogger())

	id1 := p.WorkerID()
	id2 := p.WorkerID()
	if id1 == "" || id1 != id2 {
		t.Fatalf("expected a stable non-empty worker id, got %q and %q", id1, id2)
	}
}
