// Package metrics exposes the Prometheus collectors of the quote assistant.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "quote_assistant"

var (
	// InboundMessagesTotal counts first-seen inbound messages by type.
	InboundMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "messages_total",
			Help:      "Total inbound WhatsApp messages accepted for processing",
		},
		[]string{"type"},
	)

	DuplicateMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inbound",
			Name:      "duplicates_total",
			Help:      "Total redelivered inbound messages that were skipped",
		},
	)

	ResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbound",
			Name:      "responses_total",
			Help:      "Total replies by delivery status",
		},
		[]string{"status", "kind"},
	)

	StepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "step_transitions_total",
			Help:      "Total conversation step transitions",
		},
		[]string{"from", "to"},
	)

	ConversationsCompletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "completed_total",
			Help:      "Total conversations that reached the completed step",
		},
		[]string{"priced"},
	)

	ConversationsResetTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "conversation",
			Name:      "reset_total",
			Help:      "Total conversations discarded before completion",
		},
		[]string{"reason"},
	)

	PricingRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "requests_total",
			Help:      "Total pricing API calls by outcome",
		},
		[]string{"outcome"},
	)

	PricingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "request_duration_seconds",
			Help:      "Pricing API call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	SweptConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "swept_conversations_total",
			Help:      "Total stale conversations deactivated by the sweeper",
		},
	)

	PurgedLedgerEntriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "purged_ledger_entries_total",
			Help:      "Total expired delivery ledger entries removed",
		},
	)
)

// Pricing outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeInvalid   = "invalid"
	OutcomeUpstream  = "upstream_error"
	OutcomeMalformed = "malformed"
	OutcomeTransport = "transport_error"
)

// RecordPricing records one pricing API call.
func RecordPricing(outcome string, durationSec float64) {
	PricingRequestsTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeInvalid {
		PricingDuration.Observe(durationSec)
	}
}

// RecordHTTPRequest records an HTTP request against its route template.
func RecordHTTPRequest(method, route, status string, durationSec float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSec)
}
