package eventsched

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/internal"
	"github.com/fenwick-io/eventsched/metrics"
)

// PollerConfig defines the runtime behavior of a Poller.
//
// BatchSize is the maximum number of events claimed per tick.
// PollInterval is how often the poller calls ClaimDue.
// LeaseDuration is the visibility timeout assigned to each claimed
// event.
type PollerConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	LeaseDuration time.Duration
}

// Poller is the lease-based claim-and-dispatch loop.
//
// Each tick it calls ClaimDue and, for every returned event, dispatches
// one goroutine to deliver it and write the outcome. This is
// deliberately unbounded per-batch concurrency — claim-and-dispatch
// bounds only one batch per tick; deliveries proceed in parallel with
// no internal queuing.
//
// Poller has a strict lifecycle: Start may only be called once; Stop
// waits for in-flight deliveries to finish or the timeout expires.
type Poller struct {
	lcBase
	claimer    Claimer
	deliverer  Deliverer
	outcome    *OutcomeWriter
	metrics    *metrics.Metrics
	pullTask   internal.TimerTask
	inFlight   sync.WaitGroup
	log        *slog.Logger
	workerID   string
	batchSize  int
	interval   time.Duration
	lease      time.Duration
	shutdownCh chan struct{}
	once       sync.Once
}

// NewPoller creates a new Poller. It is not started automatically. m
// may be nil, in which case claims and deliveries are not
// instrumented.
func NewPoller(claimer Claimer, deliverer Deliverer, outcome *OutcomeWriter, m *metrics.Metrics, config *PollerConfig, log *slog.Logger) *Poller {
	return &Poller{
		claimer:    claimer,
		deliverer:  deliverer,
		outcome:    outcome,
		metrics:    m,
		log:        log,
		workerID:   newWorkerID(),
		batchSize:  config.BatchSize,
		interval:   config.PollInterval,
		lease:      config.LeaseDuration,
		shutdownCh: make(chan struct{}),
	}
}

// WorkerID returns the stable worker identity (hostname + "-" +
// 8-char-random) used as LockedBy on every claim this poller makes.
func (p *Poller) WorkerID() string {
	return p.workerID
}

func newWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return host + "-" + hex.EncodeToString(buf[:])
}

func (p *Poller) tick(ctx context.Context) {
	now := time.Now()
	leaseUntil := now.Add(p.lease)
	claimed, err := p.claimer.ClaimDue(ctx, p.workerID, now, leaseUntil, p.batchSize)
	if err != nil {
		p.log.Error("claim failed", "err", err)
		return
	}
	if p.metrics != nil && len(claimed) > 0 {
		p.metrics.EventsClaimed.Add(float64(len(claimed)))
	}
	for _, ev := range claimed {
		ev := ev
		select {
		case <-p.shutdownCh:
			p.outcome.Unclaim(ctx, ev.Id, p.workerID)
			continue
		default:
		}
		p.inFlight.Add(1)
		go p.deliverOne(ctx, ev)
	}
}

func (p *Poller) deliverOne(ctx context.Context, ev *event.Event) {
	defer p.inFlight.Done()
	if ev.ScheduledAt.After(time.Now()) {
		// Clock drift or a partial-tick edge case; don't deliver early.
		p.outcome.Unclaim(ctx, ev.Id, p.workerID)
		return
	}
	start := time.Now()
	result := p.safeDeliver(ctx, ev)
	if p.metrics != nil {
		p.metrics.DeliveryDuration.WithLabelValues(ev.DeliveryType.String()).Observe(time.Since(start).Seconds())
	}
	p.outcome.Apply(ctx, ev, p.workerID, result)
}

// safeDeliver ensures a panicking or misbehaving Deliverer never
// crashes the poll loop.
func (p *Poller) safeDeliver(ctx context.Context, ev *event.Event) (result DeliveryResult) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("delivery panic recovered", "id", ev.Id, "panic", r)
			result = DeliveryResult{Retriable: true, Err: panicError{r}}
		}
	}()
	deliverable := &DeliverableEvent{
		ExternalJobID: ev.ExternalJobId,
		DeliveryType:  ev.DeliveryType,
		Destination:   ev.Destination,
		Payload:       ev.Payload,
	}
	return p.deliverer.Deliver(ctx, deliverable)
}

type panicError struct{ v any }

func (p panicError) Error() string { return "panic in delivery handler" }

// Start begins background polling and dispatching of events.
//
// Start returns ErrDoubleStarted if the poller has already been
// started.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.tryStart(); err != nil {
		return err
	}
	p.pullTask.Start(ctx, p.tick, p.interval)
	return nil
}

func (p *Poller) doStop() internal.DoneChan {
	p.once.Do(func() { close(p.shutdownCh) })
	pullDone := p.pullTask.Stop()
	allDone := make(internal.DoneChan)
	go func() {
		<-pullDone
		p.inFlight.Wait()
		close(allDone)
	}()
	return allDone
}

// Stop initiates graceful shutdown: stops claiming new events, then
// waits for in-flight deliveries to finish, subject to timeout.
//
// Stop returns ErrDoubleStopped if the poller is not running.
func (p *Poller) Stop(timeout time.Duration) error {
	return p.tryStop(timeout, p.doStop)
}
