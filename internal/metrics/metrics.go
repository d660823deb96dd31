// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// checkoutTotal counts checkout attempts by terminal state and failure reason
	checkoutTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gold_checkout_total",
		Help: "Checkout attempts by terminal state and reason",
	}, []string{"state", "reason"})

	checkoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gold_checkout_duration_seconds",
		Help:    "Checkout duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
	})

	cartMutationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gold_cart_mutation_total",
		Help: "Cart mutations by operation and result",
	}, []string{"op", "result"})

	stockReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gold_stock_read_failures_total",
		Help: "Stock reads that failed and were treated as zero stock",
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gold_active_sessions",
		Help: "Customer sessions currently holding a cart",
	})
)

func ObserveCheckout(state, reason string, elapsed time.Duration) {
	checkoutTotal.WithLabelValues(state, reason).Inc()
	checkoutDuration.Observe(elapsed.Seconds())
}

func CartMutation(op, result string) {
	cartMutationTotal.WithLabelValues(op, result).Inc()
}

func StockReadFailed() {
	stockReadFailures.Inc()
}

func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}
