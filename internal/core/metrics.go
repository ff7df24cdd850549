package core

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "enrollment"

var (
	importsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "imports_in_flight",
		Help:      "Validate and commit calls currently holding a limiter slot.",
	})

	filesValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "files_validated_total",
		Help:      "Uploaded files by validation result (accepted or rejected).",
	}, []string{"result"})

	rowsValidated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rows_validated_total",
		Help:      "Validated rows by verdict (valid or invalid).",
	}, []string{"verdict"})

	rowsCommitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "rows_committed_total",
		Help:      "Committed rows by result (success or failure).",
	}, []string{"result"})

	commitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "commit_duration_seconds",
		Help:      "Wall time of a whole commit run.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	allocatorRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "enrollment_number_collisions_total",
		Help:      "Enrollment number candidates rejected because they already existed.",
	})

	sessionsHeld = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "validation_sessions",
		Help:      "Validated uploads waiting for commit.",
	})
)
