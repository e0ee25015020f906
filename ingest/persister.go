package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/internal"
	"github.com/fenwick-io/eventsched/metrics"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/twmb/franz-go/pkg/kgo"
)

// PersisterConfig configures the Persister.
type PersisterConfig struct {
	// Concurrency is the number of partitions the Persister drains in
	// parallel per batch.
	Concurrency int

	// DefaultMaxRetries is assigned to every inserted event's
	// MaxRetries when the submission does not specify one.
	DefaultMaxRetries uint32
}

// messageSource is the subset of Buffer the Persister depends on.
type messageSource interface {
	Poll(ctx context.Context) kgo.Fetches
	Commit(ctx context.Context, fetches kgo.Fetches) error
	ProduceDLQ(ctx context.Context, original *kgo.Record, cause error) error
}

// Persister drains the ingestion buffer into the event store.
//
// For each message it checks Tier 1 of the Deduplicator, then Tier 2,
// then attempts an insert; a DUPLICATE from the store is treated as
// successful suppression. Each message is persisted in its own atomic
// unit, so one message's failure never rolls back another's success.
// On any insert error other than duplicate, the message is routed to
// the ingestion DLQ. The buffer batch is only acknowledged once every
// message in it has reached persisted, suppressed, or DLQ'd —
// whichever comes first.
type Persister struct {
	buffer      messageSource
	dedup       *Deduplicator
	inserter    eventsched.Inserter
	pool        *internal.WorkerPool[partitionJob]
	metrics     *metrics.Metrics
	concurrency int
	maxRetries  uint32
	log         *slog.Logger
}

type partitionJob struct {
	records []*kgo.Record
	done    chan struct{}
	failed  *atomic.Bool
}

// NewPersister creates a Persister. It is not started automatically. m
// may be nil, in which case dedup/DLQ outcomes are not instrumented.
func NewPersister(buffer messageSource, dedup *Deduplicator, inserter eventsched.Inserter, m *metrics.Metrics, config *PersisterConfig, log *slog.Logger) *Persister {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Persister{
		buffer:      buffer,
		dedup:       dedup,
		inserter:    inserter,
		pool:        internal.NewWorkerPool[partitionJob](concurrency, concurrency, log),
		metrics:     m,
		concurrency: concurrency,
		maxRetries:  config.DefaultMaxRetries,
		log:         log,
	}
}

// Run drains the buffer until ctx is cancelled. It is intended to be
// run in its own goroutine, one per consumer-group member.
func (p *Persister) Run(ctx context.Context) {
	p.pool.Start(ctx, p.runPartition)
	defer func() {
		<-p.pool.Stop()
	}()

	for {
		fetches := p.buffer.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			for _, e := range errs {
				p.log.Error("buffer fetch error", "topic", e.Topic, "partition", e.Partition, "err", e.Err)
			}
		}

		byPartition := make(map[string][]*kgo.Record)
		fetches.EachRecord(func(r *kgo.Record) {
			k := r.Topic + "/" + strconv.Itoa(int(r.Partition))
			byPartition[k] = append(byPartition[k], r)
		})
		if len(byPartition) == 0 {
			continue
		}

		var wg sync.WaitGroup
		var failed atomic.Bool
		for _, records := range byPartition {
			job := partitionJob{records: records, done: make(chan struct{}), failed: &failed}
			wg.Add(1)
			go func(j partitionJob) {
				defer wg.Done()
				if !p.pool.Push(j) {
					failed.Store(true)
					close(j.done)
					return
				}
				<-j.done
			}(job)
		}
		wg.Wait()

		if failed.Load() {
			p.log.Error("withholding batch commit after a catastrophic DLQ produce failure, batch will be redelivered")
			continue
		}
		if err := p.buffer.Commit(ctx, fetches); err != nil {
			p.log.Error("failed to commit buffer batch", "err", err)
		}
	}
}

func (p *Persister) runPartition(ctx context.Context, job partitionJob) {
	defer close(job.done)
	for _, r := range job.records {
		p.processOne(ctx, r, job.failed)
	}
}

func (p *Persister) processOne(ctx context.Context, r *kgo.Record, failed *atomic.Bool) {
	var sub submission.Submission
	if err := json.Unmarshal(r.Value, &sub); err != nil {
		p.sendToDLQ(ctx, r, err, failed)
		return
	}
	key := sub.Key()

	if p.dedup.Seen(key) {
		p.recordDuplicate("tier1")
		return
	}
	duplicate, err := p.dedup.IsDuplicate(ctx, sub.ExternalJobId, sub.Source, sub.ScheduledAt)
	if err != nil {
		p.log.Error("tier 2 dedup check failed, attempting insert anyway", "key", key, "err", err)
	} else if duplicate {
		p.dedup.Mark(key)
		p.recordDuplicate("tier2")
		return
	}

	maxRetries := p.maxRetries
	if sub.MaxRetries != nil {
		maxRetries = *sub.MaxRetries
	}
	ev := &event.Event{Submission: sub, MaxRetries: maxRetries}
	err = p.inserter.Insert(ctx, ev)
	switch {
	case err == nil:
		p.dedup.Mark(key)
	case isDuplicateErr(err):
		p.dedup.Mark(key)
		p.recordDuplicate("store")
	default:
		p.sendToDLQ(ctx, r, err, failed)
	}
}

func (p *Persister) recordDuplicate(tier string) {
	if p.metrics != nil {
		p.metrics.IngestDuplicates.WithLabelValues(tier).Inc()
	}
}

func isDuplicateErr(err error) bool {
	return errors.Is(err, eventsched.ErrDuplicate)
}

// sendToDLQ routes a message that could not be persisted to the
// ingestion dead-letter topic. If the DLQ produce itself fails, the
// message would otherwise be lost on ack, so failed is raised to
// withhold the whole batch's commit and force redelivery.
func (p *Persister) sendToDLQ(ctx context.Context, r *kgo.Record, cause error, failed *atomic.Bool) {
	dlqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := p.buffer.ProduceDLQ(dlqCtx, r, cause); err != nil {
		p.log.Error("catastrophic DLQ produce failure, batch ack will be withheld", "err", err, "cause", cause)
		failed.Store(true)
		return
	}
	if p.metrics != nil {
		p.metrics.IngestDLQ.Inc()
	}
}
