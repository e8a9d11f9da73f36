package metrics

import "github.com/prometheus/client_golang/prometheus"

// HubMetrics holds Prometheus metrics for the broadcast hub and its channel writers.
type HubMetrics struct {
	ConnectedChannels   prometheus.Gauge
	MessagesBroadcast   *prometheus.CounterVec
	Evictions           *prometheus.CounterVec
	BroadcastDropped    prometheus.Counter
	CommandChannelDepth prometheus.Gauge
	StopTimeouts        prometheus.Counter
	Panics              prometheus.Counter
	SendDuration        prometheus.Histogram
	PingFailures        prometheus.Counter
}

func NewHubMetrics(reg prometheus.Registerer) *HubMetrics {
	m := &HubMetrics{
		ConnectedChannels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "connected_channels",
			Help:      "Number of live channels registered with the hub.",
		}),
		MessagesBroadcast: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "messages_broadcast_total",
			Help:      "Total number of messages fanned out, by message type.",
		}, []string{"type"}),
		Evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "evictions_total",
			Help:      "Total number of channels dropped from the live set, by reason.",
		}, []string{"reason"}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "broadcast_dropped_total",
			Help:      "Broadcasts abandoned because the hub did not accept them in time.",
		}),
		CommandChannelDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "command_channel_depth",
			Help:      "Number of commands queued for the hub goroutine.",
		}),
		StopTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "stop_timeouts_total",
			Help:      "Number of hub shutdowns that exceeded the stop timeout.",
		}),
		Panics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "panics_total",
			Help:      "Number of recovered hub goroutine panics.",
		}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "send_duration_seconds",
			Help:      "Time to write one message to one channel.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "hub",
			Name:      "ping_failures_total",
			Help:      "Number of failed keepalive pings.",
		}),
	}

	reg.MustRegister(m.ConnectedChannels, m.MessagesBroadcast, m.Evictions, m.BroadcastDropped,
		m.CommandChannelDepth, m.StopTimeouts, m.Panics, m.SendDuration, m.PingFailures)
	return m
}
