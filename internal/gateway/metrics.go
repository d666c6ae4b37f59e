package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the gateway's Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	openConnections prometheus.Gauge
	rejections      *prometheus.CounterVec
	published       *prometheus.CounterVec
	deliveries      prometheus.Counter
	sendFailures    prometheus.Counter
	pruned          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		openConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "notify_gateway",
			Name:      "open_connections",
			Help:      "Authenticated websocket connections currently registered.",
		}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notify_gateway",
			Name:      "handshake_rejections_total",
			Help:      "Upgrade requests rejected, by reason.",
		}, []string{"reason"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notify_gateway",
			Name:      "events_published_total",
			Help:      "Events accepted by the broadcast router, by kind.",
		}, []string{"kind"}),
		deliveries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notify_gateway",
			Name:      "deliveries_total",
			Help:      "Envelopes queued to a connection.",
		}),
		sendFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "notify_gateway",
			Name:      "send_failures_total",
			Help:      "Per-connection delivery failures.",
		}),
		pruned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "notify_gateway",
			Name:      "pruned_connections_total",
			Help:      "Connections terminated by the liveness supervisor, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) connectionOpened() {
	if m != nil {
		m.openConnections.Inc()
	}
}

func (m *Metrics) connectionClosed() {
	if m != nil {
		m.openConnections.Dec()
	}
}

func (m *Metrics) rejected(reason string) {
	if m != nil {
		m.rejections.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) publishedEvent(kind string, delivered, failed int) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(kind).Inc()
	m.deliveries.Add(float64(delivered))
	m.sendFailures.Add(float64(failed))
}

func (m *Metrics) prunedConnection(reason string) {
	if m != nil {
		m.pruned.WithLabelValues(reason).Inc()
	}
}
