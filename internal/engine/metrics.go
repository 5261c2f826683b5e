package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "requests_total",
			Help:      "Total requests submitted per endpoint",
		},
		[]string{"endpoint"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "request_duration_seconds",
			Help:      "Duration of completed requests per endpoint",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "cache_ops_total",
			Help:      "Response cache operations by result (hit, miss, store, purge, error)",
		},
		[]string{"result"},
	)

	admissionRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "admission_rejected_total",
			Help:      "Requests rejected because the inbound queue was full",
		},
	)

	executingGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "executing_requests",
			Help:      "Requests currently holding an admission permit",
		},
	)

	queuedGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "queued_requests",
			Help:      "Requests currently occupying an inbound queue slot",
		},
	)

	streamsAbortedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "streams_aborted_total",
			Help:      "Streams terminated before completion, by reason",
		},
		[]string{"reason"},
	)

	lifecycleOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "inferd",
			Subsystem: "engine",
			Name:      "lifecycle_ops_total",
			Help:      "Model lifecycle operations by kind (load, unload)",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		requestDuration,
		cacheOps,
		admissionRejectedTotal,
		executingGauge,
		queuedGauge,
		streamsAbortedTotal,
		lifecycleOpsTotal,
	)
}
