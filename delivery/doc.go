// Package delivery implements eventsched.Deliverer for the two wire
// channels a scheduled event can target: an HTTP webhook or a broker
// topic. Both channels are wrapped in a per-destination circuit
// breaker so a failing downstream stops taking traffic instead of
// piling up retriable results behind a closed loop.
package delivery
