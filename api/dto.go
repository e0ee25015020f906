package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// submitRequest is the wire shape of a single event submission.
type submitRequest struct {
	ExternalJobID string          `json:"external_job_id" binding:"required,max=255"`
	Source        string          `json:"source" binding:"required,max=100"`
	ScheduledAt   time.Time       `json:"scheduled_at" binding:"required"`
	DeliveryType  string          `json:"delivery_type" binding:"required,oneof=HTTP KAFKA"`
	Destination   string          `json:"destination" binding:"required,max=2048"`
	Payload       json.RawMessage `json:"payload" binding:"required"`
	MaxRetries    *uint32         `json:"max_retries" binding:"omitempty,max=10"`
}

// batchSubmitRequest is the wire shape of a batch submission. The
// binding tag and the batch handler both cap a single batch at 1000
// events. Individual events are not validated at bind time, so that
// one bad event is rejected on its own rather than failing the batch.
type batchSubmitRequest struct {
	Events []submitRequest `json:"events" binding:"required,min=1,max=1000"`
}

// newValidator builds the validator instance applied to each submitted
// event. It reads the same binding tags as gin, plus the cross-field
// checks binding tags cannot express on their own: scheduled_at must
// be in the future, and destination must match the shape implied by
// delivery_type.
func newValidator() *validator.Validate {
	v := validator.New()
	v.SetTagName("binding")
	v.RegisterStructValidation(validateSubmitRequest, submitRequest{})
	return v
}

func validateSubmitRequest(sl validator.StructLevel) {
	req := sl.Current().Interface().(submitRequest)

	if !req.ScheduledAt.IsZero() && !req.ScheduledAt.After(time.Now()) {
		sl.ReportError(req.ScheduledAt, "ScheduledAt", "scheduled_at", "future", "")
	}

	switch req.DeliveryType {
	case "HTTP":
		if !strings.HasPrefix(req.Destination, "http://") && !strings.HasPrefix(req.Destination, "https://") {
			sl.ReportError(req.Destination, "Destination", "destination", "httpdestination", "")
		}
	case "KAFKA":
		if strings.ContainsAny(req.Destination, " \t\n") {
			sl.ReportError(req.Destination, "Destination", "destination", "brokerdestination", "")
		}
	}
}

// acceptedResponse is returned for a successfully queued single
// submission.
type acceptedResponse struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

// batchResultItem reports the per-event outcome of a batch submission.
type batchResultItem struct {
	ExternalJobID string `json:"external_job_id"`
	Accepted      bool   `json:"accepted"`
	MessageID     string `json:"message_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

// errorResponse is the uniform shape for any non-2xx JSON response.
type errorResponse struct {
	Error string `json:"error"`
}

// parseDaysParam parses the admin cleanup endpoint's ?days= query
// parameter, defaulting to defaultCleanupLookback when absent.
func parseDaysParam(raw string) (int, error) {
	if raw == "" {
		return defaultCleanupLookback, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return 0, fmt.Errorf("days must be a positive integer")
	}
	return days, nil
}
