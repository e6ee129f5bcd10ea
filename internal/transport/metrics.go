package transport

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_client_events_total",
		Help: "Inbound events received from the research backend, by type.",
	}, []string{"type"})

	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_client_commands_total",
		Help: "Outbound commands sent to the research backend, by type.",
	}, []string{"type"})

	metricReconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_client_reconnects_total",
		Help: "Reconnect attempts after a lost backend connection.",
	})

	metricConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_client_connected",
		Help: "Whether the backend websocket is currently connected.",
	})
)

func eventLabel(event Event) string {
	switch event.(type) {
	case Status:
		return "status"
	case Complete:
		return "research_complete"
	case Aborted:
		return "research_aborted"
	case BackendError:
		return "error"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}
