// SPDX-License-Identifier: MIT

// Package metrics defines the Prometheus instrumentation for avocast.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionStartTotal tracks the outcome of session start attempts.
	SessionStartTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avocast_session_start_total",
		Help: "Total number of session start attempts by result and reason",
	}, []string{"result", "reason"})

	// SessionStartDuration tracks the time from start request to live.
	SessionStartDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "avocast_session_start_duration_seconds",
		Help:    "Time from start request to the session reaching live",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 20, 30, 45},
	})

	// TrackReadyDuration tracks the time until both media tracks were usable
	// (or the readiness wait timed out).
	TrackReadyDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "avocast_track_ready_duration_seconds",
		Help:    "Time until audio and video tracks were subscribed",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 10, 15},
	}, []string{"complete"})

	// RelayNegotiationTotal tracks WHIP negotiation outcomes.
	RelayNegotiationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avocast_relay_negotiation_total",
		Help: "Total number of relay negotiations by result",
	}, []string{"result"})

	// TeardownStepFailures counts stop-time sub-steps that errored. Teardown
	// continues regardless; this is the only trace such failures leave.
	TeardownStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "avocast_teardown_step_failures_total",
		Help: "Total number of failed teardown sub-steps by step",
	}, []string{"step"})
)

// IncSessionStart records a session start attempt outcome.
func IncSessionStart(success bool, reason string) {
	result := "failure"
	if success {
		result = "success"
	}
	SessionStartTotal.WithLabelValues(result, reason).Inc()
}

// ObserveSessionStartDuration records the start latency.
func ObserveSessionStartDuration(d time.Duration) {
	SessionStartDuration.Observe(d.Seconds())
}

// ObserveTrackReady records the readiness wait, noting whether both tracks
// arrived before the bound.
func ObserveTrackReady(complete bool, d time.Duration) {
	label := "false"
	if complete {
		label = "true"
	}
	TrackReadyDuration.WithLabelValues(label).Observe(d.Seconds())
}

// IncRelayNegotiation records a WHIP negotiation outcome.
func IncRelayNegotiation(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	RelayNegotiationTotal.WithLabelValues(result).Inc()
}

// IncTeardownFailure records one failed teardown sub-step.
func IncTeardownFailure(step string) {
	TeardownStepFailures.WithLabelValues(step).Inc()
}
