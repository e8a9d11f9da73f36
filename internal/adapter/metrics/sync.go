package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics holds Prometheus metrics for publish-state mutations.
type SyncMetrics struct {
	Mutations        *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec
	DishesChanged    prometheus.Counter
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "mutations_total",
			Help:      "Total number of publish-state mutations, by operation and result.",
		}, []string{"operation", "result"}),
		MutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "mutation_duration_seconds",
			Help:      "Duration of commit plus broadcast enqueue, by operation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5},
		}, []string{"operation"}),
		DishesChanged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "dishes_changed_total",
			Help:      "Total number of dish records returned by committed mutations.",
		}),
	}

	reg.MustRegister(m.Mutations, m.MutationDuration, m.DishesChanged)
	return m
}
