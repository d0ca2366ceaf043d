// Package metrics defines all custom Prometheus metrics for the chat
// service. It is the single source of truth for metric names, labels, and
// help strings; the promauto constructors register everything with the
// default registry at init time.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

// ── Message metrics ───────────────────────────────────────────────────────────

// MessagesSentTotal counts successfully persisted messages.
// Label:
//   - kind: "text", "image", "video", or "voice"
var MessagesSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Total number of messages accepted and persisted, by kind.",
	},
	[]string{"kind"},
)

// MessagesDeliveredTotal counts messages whose receiver was live-connected
// at send time.
var MessagesDeliveredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_delivered_total",
		Help:      "Total number of messages delivered to a live receiver at send time.",
	},
)

// MessagesReadTotal counts messages flipped to read by either read-receipt
// entry point.
var MessagesReadTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_read_total",
		Help:      "Total number of messages marked as read.",
	},
)

// SendErrorsTotal counts rejected or failed send attempts.
// Label:
//   - reason: "invalid_kind", "receiver_not_found", "forbidden", "persistence"
var SendErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "send_errors_total",
		Help:      "Total number of send attempts that failed, by reason.",
	},
	[]string{"reason"},
)

// ── Live-connection metrics ───────────────────────────────────────────────────

// WSConnections tracks the number of currently open websocket connections.
var WSConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Number of currently open websocket connections.",
	},
)

// WSFramesTotal counts inbound websocket frames by type.
// Label:
//   - type: "send", "typing", "mark_read", "invalid"
var WSFramesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_frames_total",
		Help:      "Total number of inbound websocket frames processed, by frame type.",
	},
	[]string{"type"},
)
