package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the signaling relay
var (
	// ConnectionsActive is the current number of open websocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_connections_active",
		Help: "Current number of open signaling connections",
	})

	// BroadcastersRegistered is the current number of registered broadcasters.
	BroadcastersRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_broadcasters_registered",
		Help: "Current number of registered broadcasters",
	})

	// ViewersRegistered is the current number of registered viewers.
	ViewersRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "signaling_viewers_registered",
		Help: "Current number of registered viewers",
	})

	// MessagesRelayed counts relayed negotiation messages by kind.
	MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "signaling_messages_relayed_total",
		Help: "Total number of relayed negotiation messages by kind",
	}, []string{"kind"})

	// RelaysDropped counts relay messages discarded because the target was gone.
	RelaysDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_relays_dropped_total",
		Help: "Total number of relay messages dropped due to a dead target",
	})

	// BroadcasterCollisions counts deviceId registrations that overwrote a live entry.
	BroadcasterCollisions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_broadcaster_collisions_total",
		Help: "Total number of broadcaster registrations that overwrote an existing deviceId",
	})

	// StreamRequestTimeouts counts stream requests that expired before an answer.
	StreamRequestTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "signaling_stream_request_timeouts_total",
		Help: "Total number of stream requests that timed out before negotiation completed",
	})
)
