package delivery

import (
	"context"
	"fmt"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/submission"
)

// Router dispatches a DeliverableEvent to the channel named by its
// DeliveryType. It implements eventsched.Deliverer.
type Router struct {
	http   *HTTPDeliverer
	broker *BrokerDeliverer
}

// NewRouter creates a Router. broker may be nil if no events in this
// deployment target the broker channel; a Broker-typed event is then
// a terminal misconfiguration rather than a retriable failure.
func NewRouter(http *HTTPDeliverer, broker *BrokerDeliverer) *Router {
	return &Router{http: http, broker: broker}
}

func (r *Router) Deliver(ctx context.Context, ev *eventsched.DeliverableEvent) eventsched.DeliveryResult {
	switch ev.DeliveryType {
	case submission.HTTP:
		return r.http.Deliver(ctx, ev)
	case submission.Broker:
		if r.broker == nil {
			return eventsched.DeliveryResult{Success: false, Retriable: false, Err: fmt.Errorf("broker delivery not configured")}
		}
		return r.broker.Deliver(ctx, ev)
	default:
		return eventsched.DeliveryResult{Success: false, Retriable: false, Err: fmt.Errorf("unknown delivery type %v", ev.DeliveryType)}
	}
}
