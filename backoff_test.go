package eventsched

import (
	"testing"
	"time"
)

func TestCounterNextGrowsExponentially(t *testing.T) {
	c := &Counter{BackoffConfig{
		MaxRetries:          5,
		InitialInterval:     100 * time.Millisecond,
		MaxInterval:         10 * time.Second,
		Multiplier:          2,
		RandomizationFactor: 0,
	}}

	d1, ok1 := c.Next(1)
	d2, ok2 := c.Next(2)
	d3, ok3 := c.Next(3)

	if !ok1 || !ok2 || !ok3 {
		t.Fatalf("expected attempts within MaxRetries to report ok")
	}
	if d1 != 100*time.Millisecond {
		t.Fatalf("expected first attempt delay to equal InitialInterval, got %v", d1)
	}
	if d2 != 200*time.Millisecond {
		t.Fatalf("expected second attempt delay to double, got %v", d2)
	}
	if d3 != 400*time.Millisecond {
		t.Fatalf("expected third attempt delay to double again, got %v", d3)
	}
}

func TestCounterNextCapsAtMaxInterval(t *testing.T) {
	c := &Counter{BackoffConfig{
		MaxRetries:          20,
		InitialInterval:     time.Second,
		MaxInterval:         5 * time.Second,
		Multiplier:          3,
		RandomizationFactor: 0,
	}}

	d, ok := c.Next(10)
	if !ok {
		t.Fatalf("expected attempt 10 to report ok")
	}
	if d != 5*time.Second {
		t.Fatalf("expected delay to be capped at MaxInterval, got %v", d)
	}
}

func TestCounterNextExhaustsAfterMaxRetries(t *testing.T) {
	c := &Counter{BackoffConfig{
		MaxRetries:      3,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
	}}

	if _, ok := c.Next(3); !ok {
		t.Fatalf("expected attempt equal to MaxRetries to still report ok")
	}
	if _, ok := c.Next(4); ok {
		t.Fatalf("expected attempt beyond MaxRetries to report exhausted")
	}
}

func TestCounterNextUnboundedWhenMaxRetriesZero(t *testing.T) {
	c := &Counter{BackoffConfig{
		MaxRetries:      0,
		InitialInterval: time.Second,
		MaxInterval:     time.Minute,
		Multiplier:      2,
	}}

	if _, ok := c.Next(1000); !ok {
		t.Fatalf("expected MaxRetries == 0 to mean no attempt limit")
	}
}

func TestCounterNextJitterStaysWithinBounds(t *testing.T) {
	c := &Counter{BackoffConfig{
		MaxRetries:          5,
		InitialInterval:     time.Second,
		MaxInterval:         time.Minute,
		Multiplier:          1,
		RandomizationFactor: 0.5,
	}}

	for i := 0; i < 20; i++ {
		d, ok := c.Next(1)
		if !ok {
			t.Fatalf("expected attempt 1 to report ok")
		}
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Fatalf("expected jittered delay within [0.5s, 1.5s], got %v", d)
		}
	}
}
