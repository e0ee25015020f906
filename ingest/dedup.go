package ingest

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize is the default Tier 1 capacity: recently-seen message
// ids held in memory before Tier 2 (the store's EXISTS check) is
// consulted.
const DefaultLRUSize = 100_000

// Deduplicator is a two-tier suppression filter for re-delivered
// submissions.
//
// Tier 1 is a bounded, per-process LRU that the Persister populates
// once a submission has been inserted or suppressed as a duplicate;
// it is a cache only, not authoritative. Tier 2 is the
// store's EXISTS query and is authoritative. The store's unique
// constraint on (external_job_id, source, scheduled_at) is the final
// backstop: a race between two processes past Tier 2 is resolved by
// constraint violation at insert, which eventsched.Store.Insert
// reports as ErrDuplicate — itself treated as successful suppression,
// not an error, by the Persister.
type Deduplicator struct {
	tier1 *lru.Cache[string, struct{}]
	tier2 existenceChecker
}

// existenceChecker is the subset of eventsched.Observer that Tier 2
// depends on.
type existenceChecker interface {
	Exists(ctx context.Context, externalJobID, source string, scheduledAt time.Time) (bool, error)
}

// NewDeduplicator creates a Deduplicator backed by tier2 with a Tier 1
// LRU of the given capacity.
func NewDeduplicator(tier2 existenceChecker, capacity int) (*Deduplicator, error) {
	if capacity <= 0 {
		capacity = DefaultLRUSize
	}
	cache, err := lru.New[string, struct{}](capacity)
	if err != nil {
		return nil, err
	}
	return &Deduplicator{tier1: cache, tier2: tier2}, nil
}

// Seen reports whether key has already been accepted by this process
// since it was last evicted from Tier 1. It does not consult Tier 2.
func (d *Deduplicator) Seen(key string) bool {
	_, ok := d.tier1.Get(key)
	return ok
}

// Mark records key as accepted in Tier 1.
func (d *Deduplicator) Mark(key string) {
	d.tier1.Add(key, struct{}{})
}

// IsDuplicate checks Tier 2 — the store's EXISTS query — for the
// dedup key (externalJobID, source, scheduledAt).
func (d *Deduplicator) IsDuplicate(ctx context.Context, externalJobID, source string, scheduledAt time.Time) (bool, error) {
	return d.tier2.Exists(ctx, externalJobID, source, scheduledAt)
}
