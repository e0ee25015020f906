package delivery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/fenwick-io/eventsched"
	"github.com/sony/gobreaker/v2"
)

// HTTPConfig configures the webhook delivery channel.
type HTTPConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	Breaker        BreakerConfig
}

// HTTPDeliverer posts an event's payload as a JSON body to its
// Destination URL. A 2xx response is success. A 408, 429, 500, 502,
// 503, or 504 response, or any transport-level error, is retriable.
// Any other non-2xx status is terminal.
type HTTPDeliverer struct {
	client   *http.Client
	breakers *breakerPool
	log      *slog.Logger
}

// NewHTTPDeliverer creates an HTTPDeliverer with independent connect
// and read timeouts, matching the destination-level circuit breaker
// in config.Breaker.
func NewHTTPDeliverer(config *HTTPConfig, log *slog.Logger) *HTTPDeliverer {
	dialer := &net.Dialer{Timeout: config.ConnectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: config.ReadTimeout,
	}
	client := &http.Client{
		Transport: transport,
		Timeout:   config.ConnectTimeout + config.ReadTimeout,
	}
	return &HTTPDeliverer{
		client:   client,
		breakers: newBreakerPool(config.Breaker, log),
		log:      log,
	}
}

func (d *HTTPDeliverer) Deliver(ctx context.Context, ev *eventsched.DeliverableEvent) eventsched.DeliveryResult {
	var result eventsched.DeliveryResult
	err := d.breakers.run(ev.Destination, func() error {
		result = d.post(ctx, ev)
		if !result.Success && result.Retriable {
			return result.Err
		}
		return nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) {
		return eventsched.DeliveryResult{Success: false, Retriable: true, Err: err}
	}
	return result
}

func (d *HTTPDeliverer) post(ctx context.Context, ev *eventsched.DeliverableEvent) eventsched.DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ev.Destination, bytes.NewReader(ev.Payload))
	if err != nil {
		return eventsched.DeliveryResult{Success: false, Retriable: false, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-External-Job-Id", ev.ExternalJobID)

	resp, err := d.client.Do(req)
	if err != nil {
		return eventsched.DeliveryResult{Success: false, Retriable: true, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return eventsched.DeliveryResult{Success: true}
	}
	return eventsched.DeliveryResult{
		Success:   false,
		Retriable: retriableStatus[resp.StatusCode],
		Err:       fmt.Errorf("unexpected status %d", resp.StatusCode),
	}
}

// retriableStatus is the exact set of HTTP status codes treated as
// transient. Any other non-2xx status, including other 5xx codes, is
// terminal.
var retriableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}
