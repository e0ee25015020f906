package eventsched

import (
	"context"

	"github.com/fenwick-io/eventsched/submission"
)

// DeliveryResult is the discriminated outcome of a single delivery
// attempt. The delivery engine never re-attempts; a Retriable result
// is turned into another Pending row by OutcomeWriter, to be claimed
// again on a future poll tick.
type DeliveryResult struct {
	// Success is true for a 2xx HTTP response or a successful broker
	// produce.
	Success bool

	// Retriable is only meaningful when Success is false. True for
	// transient transport errors and the 408, 429, 500, 502, 503 and
	// 504 status codes; false for any other non-2xx status or a
	// malformed destination.
	Retriable bool

	// Err carries the classification reason. Its truncated message is
	// what OutcomeWriter records as LastError.
	Err error
}

// DeliverableEvent is the minimal read-only view of an event a
// Deliverer needs to dispatch it. It deliberately excludes store-owned
// lease fields (LockedBy, LockExpires, ...).
type DeliverableEvent struct {
	ExternalJobID string
	DeliveryType  submission.DeliveryType
	Destination   string
	Payload       []byte
}

// Deliverer dispatches a claimed event to its configured channel and
// classifies the result. Implementations must never panic or block
// past their own configured timeouts; package delivery provides the
// HTTP/broker implementation.
type Deliverer interface {
	Deliver(ctx context.Context, ev *DeliverableEvent) DeliveryResult
}
