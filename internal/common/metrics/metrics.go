// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ApplicationsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_applications_processed_total",
			Help: "Total number of applications processed by final status",
		},
		[]string{"final_status"},
	)

	PhaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_phase_failures_total",
			Help: "Total number of phase failures by phase and error code",
		},
		[]string{"phase", "error_code"},
	)

	ProcessDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loan_process_duration_seconds",
			Help: "End-to-end duration of application processing in seconds",
		},
		[]string{"final_status"},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "loan_phase_duration_seconds",
			Help: "Duration of individual workflow phases in seconds",
		},
		[]string{"phase"},
	)

	VerificationAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loan_verification_attempts",
			Help:    "Completeness verification attempts consumed per application",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"outcome"},
	)

	ActiveProcesses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "loan_processes_active",
			Help: "Number of applications currently being processed",
		},
	)

	AuditSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loan_audit_sink_failures_total",
			Help: "Total number of audit log sink write failures",
		},
		[]string{"sink"},
	)
)
