package metrics

import "github.com/prometheus/client_golang/prometheus"

// ConnectionMetrics holds Prometheus metrics for live-channel admission at the HTTP edge.
type ConnectionMetrics struct {
	Rejections *prometheus.CounterVec
	Admitted   prometheus.Counter
}

func NewConnectionMetrics(reg prometheus.Registerer) *ConnectionMetrics {
	m := &ConnectionMetrics{
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "rejections_total",
			Help:      "Total number of rejected live-channel connections, by reason.",
		}, []string{"reason"}),
		Admitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "admitted_total",
			Help:      "Total number of upgraded live-channel connections.",
		}),
	}

	reg.MustRegister(m.Rejections, m.Admitted)
	return m
}
