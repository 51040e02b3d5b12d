// Package metrics registers the prometheus collectors of the chat server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	wsConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "Total number of WebSocket connections",
		},
	)

	wsActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	chatMessagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages stored",
		},
		[]string{"room_type", "ai"},
	)

	chatEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_published_total",
			Help: "Realtime events handed to the broker",
		},
		[]string{"type", "result"},
	)

	chatEventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_events_dropped_total",
			Help: "Realtime events dropped because a session queue was full",
		},
	)

	chatAiRepliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_ai_replies_total",
			Help: "AI reply tasks by outcome",
		},
		[]string{"outcome"},
	)

	chatModerationFlagsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_moderation_flags_total",
			Help: "Messages flagged by the moderation observer",
		},
		[]string{"severity"},
	)
)

func RecordWebSocketConnection() {
	wsConnectionsTotal.Inc()
	wsActiveConnections.Inc()
}

func RecordWebSocketDisconnection() {
	wsActiveConnections.Dec()
}

func RecordMessageSent(roomType string, ai bool) {
	label := "false"
	if ai {
		label = "true"
	}
	chatMessagesSentTotal.WithLabelValues(roomType, label).Inc()
}

// RecordEventPublished counts a broker publish; err marks a failure.
func RecordEventPublished(eventType string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	chatEventsPublishedTotal.WithLabelValues(eventType, result).Inc()
}

func RecordEventDropped() {
	chatEventsDroppedTotal.Inc()
}

// RecordAiReply counts a fired AI task: replied, canceled, empty or failed.
func RecordAiReply(outcome string) {
	chatAiRepliesTotal.WithLabelValues(outcome).Inc()
}

func RecordModerationFlag(severity string) {
	chatModerationFlagsTotal.WithLabelValues(severity).Inc()
}
