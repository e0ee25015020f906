package eventsched

import (
	"context"
	"log/slog"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/metrics"
	"github.com/google/uuid"
)

// OutcomeWriter applies a DeliveryResult to the store's state
// transitions.
//
// On Success it calls Complete. On a Retriable failure with
// retry_count+1 <= max_retries it calls FailRetriable; otherwise —
// including any terminal failure — it calls FailTerminal. A
// non-retriable 4xx and an exhausted retriable failure are therefore
// not distinguished at the store layer.
type OutcomeWriter struct {
	claimer Claimer
	metrics *metrics.Metrics
	log     *slog.Logger
}

// NewOutcomeWriter constructs an OutcomeWriter bound to the given
// Claimer. m may be nil, in which case outcomes are not instrumented.
func NewOutcomeWriter(claimer Claimer, m *metrics.Metrics, log *slog.Logger) *OutcomeWriter {
	return &OutcomeWriter{claimer: claimer, metrics: m, log: log}
}

func (w *OutcomeWriter) recordOutcome(outcome string) {
	if w.metrics != nil {
		w.metrics.EventsDelivered.WithLabelValues(outcome).Inc()
	}
}

// Apply records the outcome of a single delivery attempt for ev,
// claimed by workerID.
func (w *OutcomeWriter) Apply(ctx context.Context, ev *event.Event, workerID string, result DeliveryResult) {
	if result.Success {
		if err := w.claimer.Complete(ctx, ev.Id, workerID); err != nil {
			w.log.Error("cannot complete event", "id", ev.Id, "err", err)
			return
		}
		w.recordOutcome("completed")
		return
	}

	lastError := ""
	if result.Err != nil {
		lastError = event.TruncateError(result.Err.Error())
	}

	exhausted := ev.RetryCount+1 > ev.MaxRetries
	if result.Retriable && !exhausted {
		if err := w.claimer.FailRetriable(ctx, ev.Id, workerID, lastError); err != nil {
			w.log.Error("cannot return event to pending", "id", ev.Id, "err", err)
			return
		}
		w.recordOutcome("retrying")
		return
	}

	if err := w.claimer.FailTerminal(ctx, ev.Id, workerID, lastError); err != nil {
		w.log.Error("cannot dead-letter event", "id", ev.Id, "err", err)
		return
	}
	w.recordOutcome("dead_letter")
}

// Unclaim releases a claimed-but-not-yet-due row back to Pending
// without touching RetryCount or LastError. This covers the
// clock-drift edge case where a claimed row's ScheduledAt is still in
// the future.
func (w *OutcomeWriter) Unclaim(ctx context.Context, id uuid.UUID, workerID string) {
	if err := w.claimer.RescheduleUnclaim(ctx, id, workerID); err != nil {
		w.log.Error("cannot unclaim event", "id", id, "err", err)
	}
}
