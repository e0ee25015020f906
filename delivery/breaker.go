package delivery

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig tunes the circuit breaker applied per destination.
type BreakerConfig struct {
	// MaxRequests is the number of calls allowed through while the
	// breaker is half-open.
	MaxRequests uint32

	// Interval is how often the closed-state failure counts reset.
	// Zero disables the periodic reset.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to
	// half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker open once at least
	// MinRequestsToTrip requests have been seen and this fraction of
	// them failed.
	FailureRatio      float64
	MinRequestsToTrip uint32
}

// breakerPool lazily creates one circuit breaker per destination so an
// outage on one downstream never trips delivery to another.
type breakerPool struct {
	config BreakerConfig
	log    *slog.Logger
	mu     sync.Mutex
	byDest map[string]*gobreaker.CircuitBreaker[struct{}]
}

func newBreakerPool(config BreakerConfig, log *slog.Logger) *breakerPool {
	return &breakerPool{
		config: config,
		log:    log,
		byDest: make(map[string]*gobreaker.CircuitBreaker[struct{}]),
	}
}

func (p *breakerPool) get(destination string) *gobreaker.CircuitBreaker[struct{}] {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cb, ok := p.byDest[destination]; ok {
		return cb
	}
	name := destination
	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: p.config.MaxRequests,
		Interval:    p.config.Interval,
		Timeout:     p.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < p.config.MinRequestsToTrip {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= p.config.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.log.Warn("circuit breaker state change", "destination", name, "from", from, "to", to)
		},
	})
	p.byDest[destination] = cb
	return cb
}

// run executes fn through the breaker for destination. When the
// breaker is open, it returns gobreaker.ErrOpenState without calling
// fn at all.
func (p *breakerPool) run(destination string, fn func() error) error {
	cb := p.get(destination)
	_, err := cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
