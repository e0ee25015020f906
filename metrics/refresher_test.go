package metrics

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/fenwick-io/eventsched/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type mockStatsObserver struct {
	stats map[event.Status]int64
}

func (m *mockStatsObserver) Statistics(ctx context.Context) (map[event.Status]int64, error) {
	return m.stats, nil
}

func TestRefresherPopulatesGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	observer := &mockStatsObserver{stats: map[event.Status]int64{
		event.Pending:   5,
		event.Completed: 12,
	}}

	r := NewRefresher(observer, m, 20*time.Millisecond, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Start(ctx)
	defer func() { <-r.Stop() }()

	time.Sleep(50 * time.Millisecond)

	if got := testutil.ToFloat64(m.EventsByStatus.WithLabelValues(event.Pending.String())); got != 5 {
		t.Fatalf("expected pending gauge 5, got %v", got)
	}
	if got := testutil.ToFloat64(m.EventsByStatus.WithLabelValues(event.Completed.String())); got != 12 {
		t.Fatalf("expected completed gauge 12, got %v", got)
	}
}
