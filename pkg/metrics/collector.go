// Package metrics exposes the Prometheus instrumentation for the bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_messages_total",
			Help: "Total number of inbound messages labeled by route and status",
		},
		[]string{"route", "status"},
	)
	messageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bot_message_duration_seconds",
			Help:    "End-to-end handling duration of inbound messages in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	intentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_intents_total",
			Help: "Total number of classified intents",
		},
		[]string{"intent"},
	)
	alertsFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_alerts_fired_total",
			Help: "Total number of proactive alerts delivered, by alert type",
		},
		[]string{"type"},
	)
	pendingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_pending_transitions_total",
			Help: "Total number of pending-action transitions, by resulting kind",
		},
		[]string{"kind"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_errors_total",
			Help: "Total number of errors split by code and severity",
		},
		[]string{"code", "severity"},
	)

	// RemindersNotified counts users successfully notified by reminder batches.
	RemindersNotified = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_reminders_notified_total",
			Help: "Total number of users notified by the reminder batch",
		},
	)
	// RemindersErrors counts per-user failures inside reminder batches.
	RemindersErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_reminders_errors_total",
			Help: "Total number of per-user failures in the reminder batch",
		},
	)
)

// RecordMessage increments message counters and records handling duration.
func RecordMessage(route, status string, duration time.Duration) {
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	messagesTotal.WithLabelValues(route, status).Inc()
	messageDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordIntent tracks the distribution of classifier outcomes.
func RecordIntent(intent string) {
	if intent == "" {
		intent = "unknown"
	}
	intentsTotal.WithLabelValues(intent).Inc()
}

// RecordAlert counts a delivered proactive alert.
func RecordAlert(alertType string) {
	alertsFiredTotal.WithLabelValues(alertType).Inc()
}

// RecordPendingTransition counts a pending-action change. Use "none" when a
// pending action is cleared.
func RecordPendingTransition(kind string) {
	if kind == "" {
		kind = "none"
	}
	pendingTransitionsTotal.WithLabelValues(kind).Inc()
}

// RecordError counts a handled application error.
func RecordError(code, severity string) {
	if code == "" {
		code = "unknown"
	}
	if severity == "" {
		severity = "unknown"
	}
	errorsTotal.WithLabelValues(code, severity).Inc()
}
