package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"nftmarket/core/events"
)

type Metrics struct {
	notifications *prometheus.CounterVec
}

var (
	marketMetricsOnce sync.Once
	marketRegistry    *Metrics
)

// MarketMetrics returns the lazily-initialised metrics registry counting
// marketplace notifications by event type.
func MarketMetrics() *Metrics {
	marketMetricsOnce.Do(func() {
		marketRegistry = &Metrics{
			notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "nftmarket",
				Subsystem: "market",
				Name:      "events_total",
				Help:      "Total marketplace notifications segmented by event type.",
			}, []string{"type"}),
		}
		prometheus.MustRegister(marketRegistry.notifications)
	})
	return marketRegistry
}

// Observe records one emitted notification.
func (m *Metrics) Observe(eventType string) {
	if m == nil || m.notifications == nil || eventType == "" {
		return
	}
	m.notifications.WithLabelValues(eventType).Inc()
}

// CountingEmitter decorates an event emitter with prometheus counters so the
// host can wire metrics without touching the engines.
type CountingEmitter struct {
	next events.Emitter
}

// NewCountingEmitter wraps next, which may be nil to only count.
func NewCountingEmitter(next events.Emitter) *CountingEmitter {
	return &CountingEmitter{next: next}
}

// Emit implements events.Emitter.
func (c *CountingEmitter) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	MarketMetrics().Observe(evt.EventType())
	if c.next != nil {
		c.next.Emit(evt)
	}
}
