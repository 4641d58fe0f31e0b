package metrics

import "github.com/prometheus/client_golang/prometheus"

// RealtimeMetrics tracks fan-out activity of the realtime hub.
type RealtimeMetrics struct {
	broadcasts *prometheus.CounterVec
	dropped    *prometheus.CounterVec
	clients    prometheus.Gauge
}

// NewRealtimeMetrics registers the realtime metrics on the provided registerer.
func NewRealtimeMetrics(reg prometheus.Registerer) *RealtimeMetrics {
	if reg == nil {
		return &RealtimeMetrics{}
	}
	broadcasts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_broadcasts_total",
		Help: "Events fanned out to connected clients, by event name.",
	}, []string{"event"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "realtime_dropped_total",
		Help: "Events dropped because a client buffer was full.",
	}, []string{"event"})
	clients := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "realtime_connected_clients",
		Help: "Currently connected realtime clients.",
	})
	reg.MustRegister(broadcasts, dropped, clients)
	return &RealtimeMetrics{broadcasts: broadcasts, dropped: dropped, clients: clients}
}

func (m *RealtimeMetrics) IncBroadcast(event string) {
	if m == nil || m.broadcasts == nil {
		return
	}
	m.broadcasts.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *RealtimeMetrics) IncDropped(event string) {
	if m == nil || m.dropped == nil {
		return
	}
	m.dropped.WithLabelValues(normalizeLabel(event)).Inc()
}

func (m *RealtimeMetrics) ClientConnected() {
	if m == nil || m.clients == nil {
		return
	}
	m.clients.Inc()
}

func (m *RealtimeMetrics) ClientDisconnected() {
	if m == nil || m.clients == nil {
		return
	}
	m.clients.Dec()
}
