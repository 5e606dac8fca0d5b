package intent

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	verificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voltix_intent_verifications_total",
			Help: "Verification pipeline outcomes by backend mode and status",
		},
		[]string{"mode", "status"},
	)

	blockedActionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "voltix_intent_blocked_actions_total",
			Help: "Actions refused for missing intent verification",
		},
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voltix_intent_verification_duration_seconds",
			Help:    "Wall time of the full verify-and-execute chain",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)
)
