// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 DevRoot Contributors

package authflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for attempt metrics.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalid      = "invalid"
	OutcomeRejected     = "rejected"
	OutcomeNoResponse   = "no_response"
	OutcomeTimeout      = "timeout"
	OutcomeUnexpected   = "unexpected"
	OutcomeCanceled     = "canceled"
	OutcomeBusy         = "busy"
	OutcomeCommitFailed = "commit_failed"
)

// AuthAttempts counts submit attempts by flow and outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "devroot_auth_attempts_total",
		Help: "Total number of login and signup attempts",
	},
	[]string{"flow", "outcome"},
)

// AuthDuration observes how long submitted attempts take, validation excluded.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "devroot_auth_duration_seconds",
		Help:    "Duration of submitted authentication attempts in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"flow"},
)

// RegisterMetrics registers authflow metrics with reg.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(AuthDuration)
}

// RecordAttempt increments the attempt counter.
func RecordAttempt(flow Flow, outcome string) {
	AuthAttempts.WithLabelValues(string(flow), outcome).Inc()
}

// RecordDuration observes one submitted attempt.
func RecordDuration(flow Flow, d time.Duration) {
	AuthDuration.WithLabelValues(string(flow)).Observe(d.Seconds())
}
