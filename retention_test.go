package eventsched

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRetentionLoopRejectsEmptySchedule(t *testing.T) {
	_, err := NewRetentionLoop(&maintenanceStub{}, &RetentionConfig{Schedule: "", MaxAge: time.Hour, BatchSize: 100}, silentLogger())
	if err != ErrNoSchedule {
		t.Fatalf("expected ErrNoSchedule, got %v", err)
	}
}

func TestNewRetentionLoopRejectsMalformedSchedule(t *testing.T) {
	_, err := NewRetentionLoop(&maintenanceStub{}, &RetentionConfig{Schedule: "not a cron expr", MaxAge: time.Hour, BatchSize: 100}, silentLogger())
	if err == nil {
		t.Fatalf("expected an error for a malformed cron expression")
	}
}

func TestRetentionLoopSweepDeletesUntilShortBatch(t *testing.T) {
	m := &maintenanceStub{deleteBatchSizes: []int64{100, 100, 40}}
	r, err := NewRetentionLoop(m, &RetentionConfig{Schedule: "0 3 * * *", MaxAge: 24 * time.Hour, BatchSize: 100}, silentLogger())
	if err != nil {
		t.Fatalf("unexpected error constructing retention loop: %v", err)
	}

	r.sweep(context.Background())

	if m.deleteBatchCalls.Load() != 3 {
		t.Fatalf("expected 3 DeleteTerminalBatch calls (100, 100, 40-short), got %d", m.deleteBatchCalls.Load())
	}
}

func TestRetentionLoopSweepStopsOnError(t *testing.T) {
	m := &maintenanceStub{deleteBatchErr: errors.New("db down")}
	r, err := NewRetentionLoop(m, &RetentionConfig{Schedule: "0 3 * * *", MaxAge: 24 * time.Hour, BatchSize: 100}, silentLogger())
	if err != nil {
		t.Fatalf("unexpected error constructing retention loop: %v", err)
	}

	// Must not panic; a failing batch call aborts the sweep.
	r.sweep(context.Background())

	if m.deleteBatchCalls.Load() != 1 {
		t.Fatalf("expected the sweep to stop after the first failing call, got %d calls", m.deleteBatchCalls.Load())
	}
}

func TestRetentionLoopStartStopLifecycle(t *testing.T) {
	m := &maintenanceStub{}
	r, err := NewRetentionLoop(m, &RetentionConfig{Schedule: "0 3 * * *", MaxAge: 24 * time.Hour, BatchSize: 100}, silentLogger())
	if err != nil {
		t.Fatalf("unexpected error constructing retention loop: %v", err)
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error starting retention loop: %v", err)
	}
	if err := r.Start(context.Background()); err != ErrDoubleStarted {
		t.Fatalf("expected ErrDoubleStarted on second Start, got %v", err)
	}
	if err := r.Stop(time.Second); err != nil {
		t.Fatalf("unexpected error stopping retention loop: %v", err)
	}
	if err := r.Stop(time.Second); err != ErrDoubleStopped {
		t.Fatalf("expected ErrDoubleStopped on second Stop, got %v", err)
	}
}
