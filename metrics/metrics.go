// Package metrics registers the orchestrator's Prometheus
// instrumentation and exposes a slow-interval refresher for the
// status-distribution gauge, which is backed by a full-scan aggregate
// and must not run on every scrape.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every counter, histogram, and gauge this process
// exposes, registered against a caller-supplied registry so tests can
// use a throwaway one instead of the global default.
type Metrics struct {
	EventsSubmitted  *prometheus.CounterVec
	EventsDelivered  *prometheus.CounterVec
	DeliveryDuration *prometheus.HistogramVec
	EventsClaimed    prometheus.Counter
	IngestDuplicates *prometheus.CounterVec
	IngestDLQ        prometheus.Counter
	EventsByStatus   *prometheus.GaugeVec
}

// New registers and returns a Metrics instance against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsched_events_submitted_total",
			Help: "Submissions accepted by the ingestion buffer, by delivery type.",
		}, []string{"delivery_type"}),
		EventsDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsched_events_delivered_total",
			Help: "Delivery attempts completed by the poller, by outcome.",
		}, []string{"outcome"}),
		DeliveryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventsched_delivery_duration_seconds",
			Help:    "Wall-clock time spent in a single delivery attempt.",
			Buckets: prometheus.DefBuckets,
		}, []string{"delivery_type"}),
		EventsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventsched_events_claimed_total",
			Help: "Rows claimed by the lease poller across all ticks.",
		}),
		IngestDuplicates: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "eventsched_ingest_duplicates_total",
			Help: "Submissions suppressed by the deduplicator, by tier.",
		}, []string{"tier"}),
		IngestDLQ: factory.NewCounter(prometheus.CounterOpts{
			Name: "eventsched_ingest_dlq_total",
			Help: "Messages routed to the ingestion dead-letter topic.",
		}),
		EventsByStatus: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventsched_events_by_status",
			Help: "Event row counts grouped by status, refreshed on a slow interval.",
		}, []string{"status"}),
	}
}
