package metrics

import "github.com/prometheus/client_golang/prometheus"

// StoreMetrics holds Prometheus metrics for the dish store and its circuit breaker.
type StoreMetrics struct {
	QueryDuration       *prometheus.HistogramVec
	QueryErrors         *prometheus.CounterVec
	BreakerState        prometheus.Gauge
	BreakerStateChanges *prometheus.CounterVec
	BreakerRejections   prometheus.Counter
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	m := &StoreMetrics{
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_duration_seconds",
			Help:      "Duration of database statements, by statement verb.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"query"}),
		QueryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "query_errors_total",
			Help:      "Total number of failed database statements, by statement verb.",
		}, []string{"query"}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state",
			Help:      "Store circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		BreakerStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of store circuit breaker transitions, by new state.",
		}, []string{"state"}),
		BreakerRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "circuit_breaker_rejections_total",
			Help:      "Store calls rejected while the circuit breaker was open.",
		}),
	}

	reg.MustRegister(m.QueryDuration, m.QueryErrors, m.BreakerState, m.BreakerStateChanges, m.BreakerRejections)
	return m
}
