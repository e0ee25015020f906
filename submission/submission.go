package submission

import (
	"time"
)

// Submission represents a transport-level unit of data accepted by the
// orchestrator before it becomes a durable Event.
//
// It contains only the caller-facing fields validated at the API
// boundary: the dedup identity (ExternalJobId, Source, ScheduledAt),
// the delivery channel, and an opaque JSON payload. Submission does
// not track delivery state or retry information — that is the concern
// of event.Event.
type Submission struct {
	ExternalJobId string
	Source        string
	ScheduledAt   time.Time
	DeliveryType  DeliveryType
	Destination   string
	Payload       []byte

	// MaxRetries overrides the Persister's configured default when set.
	// A caller omitting it gets the orchestrator-wide default.
	MaxRetries *uint32
}

// Key returns the dedup-key tuple used to enforce uniqueness over
// (external_job_id, source, scheduled_at).
func (s *Submission) Key() string {
	return s.Source + ":" + s.ExternalJobId + ":" + s.ScheduledAt.UTC().Format(time.RFC3339Nano)
}
