package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_relay_calls_total",
			Help: "Relay function invocations by outcome",
		},
		[]string{"function", "outcome"},
	)

	RelayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recruitflow_relay_duration_seconds",
			Help:    "Time spent in one relay call, token exchange included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"function"},
	)

	NativeFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_native_fallbacks_total",
			Help: "Communications routed to the device-native channel",
		},
		[]string{"channel", "reason"},
	)

	RealtimeEventsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_realtime_events_applied_total",
			Help: "Change events applied to in-memory state",
		},
		[]string{"table"},
	)

	RealtimeEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recruitflow_realtime_events_dropped_total",
			Help: "Change events dropped before reaching state",
		},
		[]string{"table", "reason"},
	)

	CandidatesHeld = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recruitflow_candidates_held",
			Help: "Candidates currently held by the reconciler",
		},
	)
)

// Outcome labels for RelayCalls.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
