// ABOUTME: Prometheus counters for the democtl -serve websocket surface
// ABOUTME: Grounded on the tlv-audio-service internal/metrics package shape
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters democtl's websocket handler updates at the
// same call sites the driver already touches (frame emission, resync
// warnings, connection lifecycle).
type Metrics struct {
	FramesEmitted    *prometheus.CounterVec
	BytesIn          prometheus.Counter
	ResyncsByCodec   *prometheus.CounterVec
	ConnectionsOpen  prometheus.Gauge
	ConnectionsTotal prometheus.Counter
}

// New registers and returns a fresh set of demux metrics.
func New() *Metrics {
	return &Metrics{
		FramesEmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demux_frames_emitted_total",
			Help: "Total number of frames emitted, by codec.",
		}, []string{"codec"}),
		BytesIn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demux_bytes_in_total",
			Help: "Total number of raw bytes pushed into any driver.",
		}),
		ResyncsByCodec: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demux_resync_total",
			Help: "Total number of frame-sync resets, by codec.",
		}, []string{"codec"}),
		ConnectionsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "demux_websocket_connections_open",
			Help: "Current number of open websocket streaming connections.",
		}),
		ConnectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demux_websocket_connections_total",
			Help: "Total number of websocket streaming connections accepted.",
		}),
	}
}
