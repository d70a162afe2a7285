// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AssessmentsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_submitted_total",
			Help: "Total number of assessments submitted, by recommended platform",
		},
		[]string{"recommendation"},
	)

	AssessmentsReviewed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessments_reviewed_total",
			Help: "Total number of review decisions recorded",
		},
		[]string{"decision"},
	)

	AssessmentErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_operation_errors_total",
			Help: "Lifecycle operations that returned an error",
		},
		[]string{"operation", "error_code"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification delivery attempts by kind and status",
		},
		[]string{"kind", "status"},
	)

	ScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scoring_duration_seconds",
			Help:    "Time spent scoring an answer set",
			Buckets: []float64{.00001, .00005, .0001, .0005, .001, .005},
		},
	)

	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_cache_requests_total",
			Help: "Assessment cache lookups by result",
		},
		[]string{"result"}, // hit, miss, error
	)
)
