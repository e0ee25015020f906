package delivery

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestBreakerPoolIsolatesDestinations(t *testing.T) {
	pool := newBreakerPool(BreakerConfig{
		MaxRequests:       1,
		Timeout:           time.Minute,
		FailureRatio:      0.5,
		MinRequestsToTrip: 1,
	}, slog.Default())

	failing := errors.New("boom")
	for i := 0; i < 3; i++ {
		pool.run("dest-a", func() error { return failing })
	}

	if err := pool.run("dest-a", func() error { return nil }); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected dest-a breaker to be open, got %v", err)
	}

	if err := pool.run("dest-b", func() error { return nil }); err != nil {
		t.Fatalf("expected dest-b to be unaffected by dest-a's breaker, got %v", err)
	}
}

func TestBreakerPoolReusesBreakerPerDestination(t *testing.T) {
	pool := newBreakerPool(BreakerConfig{MaxRequests: 1, Timeout: time.Minute, FailureRatio: 1, MinRequestsToTrip: 1}, slog.Default())
	a := pool.get("dest-x")
	b := pool.get("dest-x")
	if a != b {
		t.Fatal("expected the same breaker instance to be reused for a destination")
	}
}
