package eventsched

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/fenwick-io/eventsched/internal"
)

const (
	stopped = iota
	started
)

var (
	// ErrDoubleStarted is returned when Start is called on a loop that
	// has already been started.
	//
	// Loops managed by this package follow a strict lifecycle and must
	// not be started more than once without being stopped.
	ErrDoubleStarted = errors.New("loop double start")

	// ErrDoubleStopped is returned when Stop is called on a loop that
	// is not currently running.
	ErrDoubleStopped = errors.New("loop double stop")

	// ErrStopTimeout is returned when a loop fails to shut down within
	// the provided timeout during Stop.
	//
	// In this case, the loop may still be terminating in the background.
	ErrStopTimeout = errors.New("loop stop timeout")
)

// lcBase is the shared start/stop state machine for every independent
// periodic loop (Poller, RecoveryLoop, RetentionLoop).
type lcBase struct {
	state atomic.Int32
}

func (lb *lcBase) tryStart() error {
	if !lb.state.CompareAndSwap(stopped, started) {
		return ErrDoubleStarted
	}
	return nil
}

func (lb *lcBase) tryStop(timeout time.Duration, df internal.DoneFunc) error {
	if !lb.state.CompareAndSwap(started, stopped) {
		return ErrDoubleStopped
	}
	done := df()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}
