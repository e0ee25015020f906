package event

import (
	"time"

	"github.com/fenwick-io/eventsched/submission"
	"github.com/google/uuid"
)

// MaxLastErrorLen is the truncation bound applied to LastError before
// it is persisted.
const MaxLastErrorLen = 4000

// Event represents a scheduled delivery unit managed by the store.
//
// It embeds submission.Submission and augments it with delivery state,
// lease, and scheduling information.
//
// Event instances should be treated as snapshots of storage state.
// Mutating fields directly does not change the underlying queue state;
// transitions must be performed through the Store interface.
type Event struct {
	submission.Submission

	Id uuid.UUID

	Status      Status
	RetryCount  uint32
	MaxRetries  uint32
	LastError   string
	LockedBy    *string
	LockExpires *time.Time

	PartitionKey int64

	CreatedAt  time.Time
	UpdatedAt  time.Time
	ExecutedAt *time.Time
}

// PartitionKeyFor derives the partition discriminator for a given
// scheduling instant: year*1000 + day-of-year, evaluated in UTC.
func PartitionKeyFor(scheduledAt time.Time) int64 {
	u := scheduledAt.UTC()
	return int64(u.Year())*1000 + int64(u.YearDay())
}

// TruncateError bounds an error message to MaxLastErrorLen runes.
func TruncateError(s string) string {
	r := []rune(s)
	if len(r) <= MaxLastErrorLen {
		return s
	}
	return string(r[:MaxLastErrorLen])
}
