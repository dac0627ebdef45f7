package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/control-room/internal/domain"
	"github.com/couchcryptid/control-room/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Monitor periodically classifies the sensor table so that staleness shows up
// even when no frames arrive.
type Monitor struct {
	table      *domain.Table
	staleAfter time.Duration
	interval   time.Duration
	metrics    *observability.Metrics
	clock      clockwork.Clock

	mu          sync.Mutex
	latest      []domain.SensorView
	subscribers []func([]domain.SensorView)
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithClock replaces the wall clock, for tests.
func WithClock(c clockwork.Clock) MonitorOption {
	return func(m *Monitor) {
		m.clock = c
	}
}

// NewMonitor creates a Monitor that refreshes every interval.
func NewMonitor(table *domain.Table, staleAfter, interval time.Duration, metrics *observability.Metrics, opts ...MonitorOption) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	m := &Monitor{
		table:      table,
		staleAfter: staleAfter,
		interval:   interval,
		metrics:    metrics,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Subscribe registers fn to receive the views after every refresh. fn runs on
// the monitor goroutine and must not modify the slice.
func (m *Monitor) Subscribe(fn func([]domain.SensorView)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Snapshot returns the views from the most recent refresh, or classifies the
// table now if no refresh has run yet.
func (m *Monitor) Snapshot() []domain.SensorView {
	m.mu.Lock()
	latest := m.latest
	m.mu.Unlock()
	if latest != nil {
		return latest
	}
	return m.table.Views(m.clock.Now(), m.staleAfter)
}

// Refresh classifies the table, updates the sensor gauges and notifies
// subscribers.
func (m *Monitor) Refresh() []domain.SensorView {
	views := m.table.Views(m.clock.Now(), m.staleAfter)

	for _, v := range views {
		m.metrics.SensorStatus.WithLabelValues(v.Tag).Set(float64(v.Status))
		age := -1.0
		if !v.Updated.IsZero() {
			age = v.AgeSeconds
		}
		m.metrics.SensorAge.WithLabelValues(v.Tag).Set(age)
	}

	m.mu.Lock()
	m.latest = views
	subs := make([]func([]domain.SensorView), len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(views)
	}
	return views
}

// Run refreshes once immediately and then on every tick until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.Refresh()

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			m.Refresh()
		}
	}
}
