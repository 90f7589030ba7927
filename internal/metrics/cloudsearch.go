package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "csindex"

// CloudSearch Prometheus metrics.
var (
	RemoteRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_requests_total",
			Help:      "Total number of CloudSearch API requests",
		},
		[]string{"op", "status"},
	)

	RemoteRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_request_duration_seconds",
			Help:      "CloudSearch API request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	ReconcilePassesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_passes_total",
			Help:      "Schema reconciliation passes by outcome",
		},
		[]string{"outcome"}, // "converged" / "built" / "failed"
	)

	FieldDefinitionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_definitions_total",
			Help:      "Index field definitions issued",
		},
	)

	PollIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_iterations_total",
			Help:      "Bounded poll predicate checks",
		},
		[]string{"result"}, // "done" / "waiting" / "timeout"
	)

	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Documents staged for upload",
		},
		[]string{"op"}, // "add" / "delete"
	)

	PreparationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "preparation_failures_total",
			Help:      "Records that failed document preparation",
		},
		[]string{"index"},
	)

	SearchHits = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_hits",
			Help:      "Merged hit count per search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

var csMetricsRegistered bool

// RegisterCloudSearchMetrics registers Prometheus CloudSearch metrics. Must be called once from main.
func RegisterCloudSearchMetrics() {
	if csMetricsRegistered {
		return
	}
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteRequestDuration)
	prometheus.MustRegister(ReconcilePassesTotal)
	prometheus.MustRegister(FieldDefinitionsTotal)
	prometheus.MustRegister(PollIterationsTotal)
	prometheus.MustRegister(DocumentsTotal)
	prometheus.MustRegister(PreparationFailuresTotal)
	prometheus.MustRegister(SearchHits)
	csMetricsRegistered = true
}

// ObserveRemote records one CloudSearch API call.
func ObserveRemote(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RemoteRequestsTotal.WithLabelValues(op, status).Inc()
	RemoteRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
