package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/fenwick-io/eventsched/event"
	"github.com/fenwick-io/eventsched/submission"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	maxBatchSize           = 1000
	adminCleanupBatchSize  = 5000
	defaultCleanupLookback = 7
)

// producer is the subset of ingest.Buffer the submit handlers depend
// on.
type producer interface {
	Produce(ctx context.Context, sub *submission.Submission) error
}

// Handlers implements the REST façade: submission, lookup, cancellation,
// and the admin surface.
type Handlers struct {
	producer    producer
	observer    eventsched.Observer
	canceller   eventsched.Canceller
	maintenance eventsched.Maintenance
	validate    *validator.Validate
}

// NewHandlers creates a Handlers bound to the given collaborators.
// Per-submission max_retries overrides are threaded through
// submission.Submission; the orchestrator-wide default lives in the
// Persister, not here.
func NewHandlers(producer producer, observer eventsched.Observer, canceller eventsched.Canceller, maintenance eventsched.Maintenance) *Handlers {
	return &Handlers{
		producer:    producer,
		observer:    observer,
		canceller:   canceller,
		maintenance: maintenance,
		validate:    newValidator(),
	}
}

func (h *Handlers) toSubmission(req *submitRequest) submission.Submission {
	deliveryType, _ := submission.ParseDeliveryType(req.DeliveryType)
	return submission.Submission{
		ExternalJobId: req.ExternalJobID,
		Source:        req.Source,
		ScheduledAt:   req.ScheduledAt,
		DeliveryType:  deliveryType,
		Destination:   req.Destination,
		Payload:       []byte(req.Payload),
		MaxRetries:    req.MaxRetries,
	}
}

// SubmitEvent handles POST /api/v1/events.
func (h *Handlers) SubmitEvent(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	sub := h.toSubmission(&req)
	if err := h.producer.Produce(c.Request.Context(), &sub); err != nil {
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "failed to queue event: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, acceptedResponse{
		MessageID: uuid.New().String(),
		Message:   "Event queued for processing",
	})
}

// SubmitBatch handles POST /api/v1/events/batch.
func (h *Handlers) SubmitBatch(c *gin.Context) {
	var req batchSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if len(req.Events) > maxBatchSize {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "batch exceeds maximum of 1000 events"})
		return
	}

	results := make([]batchResultItem, len(req.Events))
	for i := range req.Events {
		item := &req.Events[i]
		result := batchResultItem{ExternalJobID: item.ExternalJobID}
		if err := h.validate.Struct(item); err != nil {
			result.Error = err.Error()
			results[i] = result
			continue
		}
		sub := h.toSubmission(item)
		if err := h.producer.Produce(c.Request.Context(), &sub); err != nil {
			result.Error = err.Error()
			results[i] = result
			continue
		}
		result.Accepted = true
		result.MessageID = uuid.New().String()
		results[i] = result
	}

	c.JSON(http.StatusAccepted, gin.H{"results": results})
}

// GetByID handles GET /api/v1/events/:id.
func (h *Handlers) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid event id"})
		return
	}
	ev, err := h.observer.GetByID(c.Request.Context(), id)
	h.respondEvent(c, ev, err)
}

// GetByExternalID handles GET /api/v1/events/external/:ext.
func (h *Handlers) GetByExternalID(c *gin.Context) {
	ev, err := h.observer.GetByExternalJobID(c.Request.Context(), c.Param("ext"))
	h.respondEvent(c, ev, err)
}

// ListByExternalID handles GET /api/v1/events/external/:ext/all.
func (h *Handlers) ListByExternalID(c *gin.Context) {
	events, err := h.observer.ListByExternalJobID(c.Request.Context(), c.Param("ext"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handlers) respondEvent(c *gin.Context, ev *event.Event, err error) {
	if err != nil {
		if errors.Is(err, eventsched.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Error: "event not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, ev)
}

// CancelByID handles DELETE /api/v1/events/:id.
func (h *Handlers) CancelByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "invalid event id"})
		return
	}
	err = h.canceller.CancelByID(c.Request.Context(), id)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, eventsched.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Error: "event not found"})
	case errors.Is(err, eventsched.ErrInvalidState):
		c.JSON(http.StatusConflict, errorResponse{Error: "event is not pending"})
	default:
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// CancelByExternalID handles DELETE /api/v1/events/external/:ext.
func (h *Handlers) CancelByExternalID(c *gin.Context) {
	count, err := h.canceller.CancelByExternalJobID(c.Request.Context(), c.Param("ext"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": count})
}

// Statistics handles GET /api/v1/events/statistics.
func (h *Handlers) Statistics(c *gin.Context) {
	stats, err := h.observer.Statistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}
	byName := make(map[string]int64, len(stats))
	for status, count := range stats {
		byName[status.String()] = count
	}
	c.JSON(http.StatusOK, gin.H{"statistics": byName})
}

// AdminCleanup handles POST /api/v1/events/admin/cleanup?days=N. It
// runs a single manual retention sweep outside the cron schedule,
// useful for an operator reclaiming disk space immediately.
func (h *Handlers) AdminCleanup(c *gin.Context) {
	days, err := parseDaysParam(c.Query("days"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	var total int64
	for {
		deleted, err := h.maintenance.DeleteTerminalBatch(c.Request.Context(), cutoff, adminCleanupBatchSize)
		if err != nil {
			c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
			return
		}
		total += deleted
		if deleted < adminCleanupBatchSize {
			break
		}
	}
	c.JSON(http.StatusOK, gin.H{"deleted": total})
}
