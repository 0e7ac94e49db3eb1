// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesTotal counts frames decoded per direction.
	FramesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbridge_frames_total",
			Help: "Total number of frames decoded",
		},
		[]string{"direction"},
	)

	// FramesDropped counts frames the interception layer refused to forward.
	FramesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbridge_frames_dropped_total",
			Help: "Total number of frames dropped by interception",
		},
		[]string{"direction"},
	)

	// FrameBytes counts relayed wire bytes per direction.
	FrameBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbridge_frame_bytes_total",
			Help: "Total wire bytes relayed",
		},
		[]string{"direction"},
	)

	// DecodeErrors counts fatal frame decode failures.
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starbridge_decode_errors_total",
			Help: "Total number of fatal frame decode errors",
		},
		[]string{"direction"},
	)

	// ConnectionsActive tracks currently relaying connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "starbridge_connections_active",
			Help: "Number of currently relaying client connections",
		},
	)

	// ConnectionsTotal counts accepted client connections.
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starbridge_connections_total",
			Help: "Total number of accepted client connections",
		},
	)

	// UpstreamDialFailures counts failed dials to the real game server.
	UpstreamDialFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starbridge_upstream_dial_failures_total",
			Help: "Total number of failed dials to the upstream server",
		},
	)

	// InjectedMessages counts chat frames pushed via outbound injection.
	InjectedMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starbridge_injected_messages_total",
			Help: "Total number of injected chat frames",
		},
	)

	// BroadcastFailures counts per-connection failures during fan-out.
	BroadcastFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starbridge_broadcast_failures_total",
			Help: "Total number of connections skipped during broadcast",
		},
	)
)
