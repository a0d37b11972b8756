package realtime

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	Connections         prometheus.Gauge
	OnlineUsers         prometheus.Gauge
	Events              *prometheus.CounterVec
	HandshakeRejections *prometheus.CounterVec
	DroppedSends        prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glowspace_ws_connections",
			Help: "Authenticated chat sockets currently open.",
		}),
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "glowspace_online_users",
			Help: "Distinct users with at least one open chat socket.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowspace_ws_events_total",
			Help: "Inbound socket events processed, by event name.",
		}, []string{"event"}),
		HandshakeRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "glowspace_ws_handshake_rejections_total",
			Help: "Socket handshakes rejected, by reason.",
		}, []string{"reason"}),
		DroppedSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "glowspace_ws_dropped_sends_total",
			Help: "Sockets dropped because their send queue was full.",
		}),
	}
}

func (m *Metrics) Register(r prometheus.Registerer) {
	r.MustRegister(m.Connections, m.OnlineUsers, m.Events, m.HandshakeRejections, m.DroppedSends)
}

// eventLabel keeps label cardinality bounded to known event names.
func eventLabel(event string) string {
	switch event {
	case EventJoinRoom, EventLeaveRoom, EventTyping, EventStopTyping,
		EventSendPrivateMessage, EventPing:
		return event
	}
	if _, ok := roomRelays[event]; ok {
		return event
	}
	return "unknown"
}
