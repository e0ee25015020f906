package eventsched

import (
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig describes an exponential backoff with jitter.
//
// The event store's own retry policy does not delay re-delivery: a
// retriable failure returns an event straight to Pending, and
// ScheduledAt is immutable, so the event is simply due again on the
// next poll tick. BackoffConfig instead backs the ingestion buffer's
// broker reconnect policy (see ingest.Buffer), where a delayed,
// jittered retry is exactly what's wanted.
type BackoffConfig struct {
	MaxRetries          uint32
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// Counter turns a BackoffConfig into a stateless attempt -> delay
// function.
type Counter struct {
	BackoffConfig
}

// Next returns the delay to wait before the given attempt number, and
// false once MaxRetries has been exceeded (when MaxRetries > 0).
func (bc *Counter) Next(attempt uint32) (time.Duration, bool) {
	if bc.MaxRetries > 0 && attempt > bc.MaxRetries {
		return 0, false
	}
	exp := float64(bc.InitialInterval) * math.Pow(bc.Multiplier, float64(attempt-1))
	if exp > float64(bc.MaxInterval) {
		exp = float64(bc.MaxInterval)
	}
	if bc.RandomizationFactor > 0 {
		delta := bc.RandomizationFactor * exp
		minExp := exp - delta
		maxExp := exp + delta
		exp = minExp + rand.Float64()*(maxExp-minExp)
	}
	return time.Duration(exp), true
}
