package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sedbot"

var (
	MessagesReceivedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Total number of inbound text messages pulled from the receiver",
		},
	)

	MessagesUnclaimedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_unclaimed_total",
			Help:      "Total number of inbound messages no handler claimed",
		},
	)

	HandlerRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_runs_total",
			Help:      "Handler invocations by outcome (claimed, skipped, failed)",
		},
		[]string{"handler", "outcome"},
	)

	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handler_duration_seconds",
			Help:      "Duration of handler invocations in seconds, including the outbound send",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"handler"},
	)

	UserErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_errors_total",
			Help:      "Parse and command errors rendered back to users",
		},
		[]string{"handler", "stage"},
	)

	DispatchRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_runs_total",
			Help:      "Completed dispatch runs by result (disconnected, failed, cancelled)",
		},
		[]string{"result"},
	)

	JournalPrunedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_pruned_runs_total",
			Help:      "Run journal rows deleted by the retention worker",
		},
	)
)
