package store

import (
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// eventModel is the bun row mapping for the events table. It mirrors
// event.Event field-for-field so toEvent/fromEvent stay mechanical.
type eventModel struct {
	bun.BaseModel `bun:"table:events"`

	Id uuid.UUID `bun:"id,pk,type:uuid"`

	ExternalJobId string                  `bun:"external_job_id,notnull"`
	Source        string                  `bun:"source,notnull"`
	ScheduledAt   time.Time               `bun:"scheduled_at,notnull"`
	DeliveryType  submission.DeliveryType `bun:"delivery_type,notnull"`
	Destination   string                  `bun:"destination,notnull"`
	Payload       []byte                  `bun:"payload,type:blob"`

	Status     event.Status `bun:"status,notnull,default:0"`
	RetryCount uint32       `bun:"retry_count,notnull,default:0"`
	MaxRetries uint32       `bun:"max_retries,notnull,default:0"`
	LastError  string       `bun:"last_error,notnull,default:''"`

	LockedBy    *string    `bun:"locked_by,nullzero,default:null"`
	LockExpires *time.Time `bun:"lock_expires,nullzero,default:null"`

	PartitionKey int64 `bun:"partition_key,notnull"`

	CreatedAt  time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
	ExecutedAt *time.Time `bun:"executed_at,nullzero,default:null"`
}

func (em *eventModel) toEvent() *event.Event {
	return &event.Event{
		Submission: submission.Submission{
			ExternalJobId: em.ExternalJobId,
			Source:        em.Source,
			ScheduledAt:   em.ScheduledAt,
			DeliveryType:  em.DeliveryType,
			Destination:   em.Destination,
			Payload:       em.Payload,
		},
		Id:           em.Id,
		Status:       em.Status,
		RetryCount:   em.RetryCount,
		MaxRetries:   em.MaxRetries,
		LastError:    em.LastError,
		LockedBy:     em.LockedBy,
		LockExpires:  em.LockExpires,
		PartitionKey: em.PartitionKey,
		CreatedAt:    em.CreatedAt,
		UpdatedAt:    em.UpdatedAt,
		ExecutedAt:   em.ExecutedAt,
	}
}

func fromEvent(ev *event.Event) *eventModel {
	id := ev.Id
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now()
	return &eventModel{
		Id:            id,
		ExternalJobId: ev.ExternalJobId,
		Source:        ev.Source,
		ScheduledAt:   ev.ScheduledAt,
		DeliveryType:  ev.DeliveryType,
		Destination:   ev.Destination,
		Payload:       ev.Payload,
		Status:        event.Pending,
		MaxRetries:    ev.MaxRetries,
		PartitionKey:  event.PartitionKeyFor(ev.ScheduledAt),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
