package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submission metrics
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicebridge_submissions_total",
			Help: "Total number of processed submissions by final status",
		},
		[]string{"status"},
	)

	StepFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicebridge_step_failures_total",
			Help: "Total number of pipeline step failures",
		},
		[]string{"step"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "invoicebridge_step_duration_seconds",
			Help:    "Duration of pipeline steps in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	// Correction metrics
	CorrectionsAttempted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicebridge_corrections_attempted_total",
			Help: "Total number of correction attempts by stage",
		},
		[]string{"stage"},
	)

	CorrectionsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoicebridge_corrections_applied_total",
			Help: "Total number of corrections that produced a changed document",
		},
		[]string{"stage"},
	)

	AdvisorErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "invoicebridge_advisor_errors_total",
			Help: "Total number of unreachable-advisor events",
		},
	)
)
