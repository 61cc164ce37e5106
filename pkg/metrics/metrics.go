package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Checkouts      *prometheus.CounterVec
	LatencyMS      prometheus.Histogram
	Retries        prometheus.Counter
	LowStockEvents prometheus.Counter
	OutboxSent     *prometheus.CounterVec
}

// NewCheckoutMetrics registers the collectors on reg. A nil reg uses a fresh
// private registry, which keeps tests from colliding on the default one.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &CheckoutMetrics{
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnipos",
			Subsystem: "checkout",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		LatencyMS: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "omnipos",
			Subsystem: "checkout",
			Name:      "checkout_duration_ms",
			Help:      "Checkout latency in milliseconds, retries included.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		Retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnipos",
			Subsystem: "checkout",
			Name:      "transient_retries_total",
			Help:      "Unit-of-work re-executions caused by transient failures.",
		}),
		LowStockEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "omnipos",
			Subsystem: "inventory",
			Name:      "low_stock_events_total",
			Help:      "Low-stock signals raised by committed checkouts.",
		}),
		OutboxSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "omnipos",
			Subsystem: "outbox",
			Name:      "published_total",
			Help:      "Outbox records published, by topic and result.",
		}, []string{"topic", "result"}),
	}

	reg.MustRegister(m.Checkouts, m.LatencyMS, m.Retries, m.LowStockEvents, m.OutboxSent)
	return m
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
