// Package metrics declares the Prometheus collectors of the voice agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_agent"

var (
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations dispatched, by tool and result kind (ok or error kind).",
		},
		[]string{"tool", "result"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Latency of tool invocations including store round trips.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	SlotConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_conflicts_total",
			Help:      "Bookings or reschedules rejected by the live-slot uniqueness constraint.",
		},
		[]string{"operation"},
	)

	SuppressedRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suppressed_replies_total",
			Help:      "Tool results whose spoken reply was dropped because the caller interrupted or hung up.",
		},
	)

	SummaryFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Session summaries replaced by the local fallback, by cause (error or timeout).",
		},
		[]string{"cause"},
	)

	SessionsClosedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_closed_total",
			Help:      "Sessions closed, by whether the conversation record was persisted.",
		},
		[]string{"persisted"},
	)

	NotifyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_failures_total",
			Help:      "Front-end events that could not be published.",
		},
		[]string{"type"},
	)
)
