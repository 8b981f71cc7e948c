package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReplyOutcomes counts finished reply orchestrations by outcome and cause.
	ReplyOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogreply_reply_outcomes_total",
			Help: "Total number of standard message reply actions handled",
		},
		[]string{"outcome", "cause"},
	)

	ReplyDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dialogreply_reply_duration_seconds",
			Help:    "Duration of standard message reply handling in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	// ActionWaitDuration measures blocking waits on sub-agent actions.
	ActionWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogreply_action_wait_seconds",
			Help:    "Time spent waiting for sub-agent actions to finish",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"finished"},
	)

	DispatchedActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogreply_dispatched_actions_total",
			Help: "Initiated actions handed to agents, labeled by agent and result",
		},
		[]string{"agent", "result"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogreply_http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dialogreply_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
