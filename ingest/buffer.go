// Package ingest provides the durable ingestion buffer, the two-tier
// deduplicator, and the persister that drains the buffer into the
// event store.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/metrics"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/twmb/franz-go/pkg/kgo"
)

// BufferConfig configures the broker-backed ingestion buffer.
type BufferConfig struct {
	Brokers          []string
	Topic            string
	DLQTopic         string
	GroupID          string
	Partitions       int32
	LingerTime       time.Duration
	ReconnectBackoff eventsched.BackoffConfig
}

// Buffer is a partitioned, durable, at-least-once append-only log
// fronting the event store. Submissions are produced keyed by
// source+":"+external_job_id so all submissions for a given job land
// on the same partition, preserving per-job ordering.
type Buffer struct {
	client   *kgo.Client
	topic    string
	dlqTopic string
	metrics  *metrics.Metrics
	log      *slog.Logger
}

// NewBuffer connects a Buffer to the configured brokers. m may be nil,
// in which case accepted submissions are not instrumented.
//
// The client is idempotent (no duplicate records on producer retry),
// durably acknowledged (all in-sync replicas), batched with a linger
// window, and compressed.
func NewBuffer(config *BufferConfig, m *metrics.Metrics, log *slog.Logger) (*Buffer, error) {
	// Idempotent produce is franz-go's default and is left unset here;
	// only the settings this package actually relies on are explicit.
	opts := []kgo.Opt{
		kgo.SeedBrokers(config.Brokers...),
		kgo.ConsumeTopics(config.Topic),
		kgo.ConsumerGroup(config.GroupID),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.ProducerLinger(config.LingerTime),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.DisableAutoCommit(),
	}

	client, err := kgo.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("ingest: connect buffer: %w", err)
	}

	if err := pingWithBackoff(client, &config.ReconnectBackoff, log); err != nil {
		client.Close()
		return nil, fmt.Errorf("ingest: buffer unreachable: %w", err)
	}
	return &Buffer{client: client, topic: config.Topic, dlqTopic: config.DLQTopic, metrics: m, log: log}, nil
}

// pingWithBackoff verifies broker connectivity at startup, retrying
// with jittered exponential backoff so a broker that is merely slow to
// come up doesn't fail the whole process on a single attempt.
func pingWithBackoff(client *kgo.Client, backoff *eventsched.BackoffConfig, log *slog.Logger) error {
	counter := &eventsched.Counter{BackoffConfig: *backoff}
	var lastErr error
	attempt := uint32(1)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		lastErr = client.Ping(ctx)
		cancel()
		if lastErr == nil {
			return nil
		}
		delay, ok := counter.Next(attempt)
		if !ok {
			return lastErr
		}
		log.Warn("buffer ping failed, retrying", "attempt", attempt, "err", lastErr, "delay", delay)
		time.Sleep(delay)
		attempt++
	}
}

// Produce appends sub to the buffer, partitioned by
// source+":"+external_job_id.
func (b *Buffer) Produce(ctx context.Context, sub *submission.Submission) error {
	payload, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("ingest: marshal submission: %w", err)
	}
	record := &kgo.Record{
		Topic: b.topic,
		Key:   []byte(sub.Source + ":" + sub.ExternalJobId),
		Value: payload,
	}
	if err := b.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return err
	}
	if b.metrics != nil {
		b.metrics.EventsSubmitted.WithLabelValues(sub.DeliveryType.String()).Inc()
	}
	return nil
}

// ProduceDLQ publishes a message that failed persistence, other than
// by duplicate suppression, to the ingestion dead-letter topic.
func (b *Buffer) ProduceDLQ(ctx context.Context, original *kgo.Record, cause error) error {
	record := &kgo.Record{
		Topic: b.dlqTopic,
		Key:   original.Key,
		Value: original.Value,
		Headers: []kgo.RecordHeader{
			{Key: "x-dlq-reason", Value: []byte(cause.Error())},
		},
	}
	return b.client.ProduceSync(ctx, record).FirstErr()
}

// Poll fetches the next batch of buffered records, blocking until at
// least one record is available or ctx is cancelled.
func (b *Buffer) Poll(ctx context.Context) kgo.Fetches {
	return b.client.PollFetches(ctx)
}

// Commit acknowledges every record in fetches. It must only be called
// once every record in the batch has reached a terminal outcome
// (persisted, suppressed, or DLQ'd) — acking early would let an
// in-flight DLQ-produce failure be silently dropped on redelivery.
func (b *Buffer) Commit(ctx context.Context, fetches kgo.Fetches) error {
	var records []*kgo.Record
	fetches.EachRecord(func(r *kgo.Record) {
		records = append(records, r)
	})
	if len(records) == 0 {
		return nil
	}
	return b.client.CommitRecords(ctx, records...)
}

// Close closes the underlying client. Produce and ProduceDLQ wait for
// each record to be acknowledged, so Close does no flushing of its own.
func (b *Buffer) Close() {
	b.client.Close()
}
