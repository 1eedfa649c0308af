package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classquiz_submissions_total",
			Help: "Total number of quiz submissions by outcome",
		},
		[]string{"result"},
	)

	GradesRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classquiz_grades_recorded_total",
			Help: "Total number of grades written, by source (submission or sweep)",
		},
		[]string{"source"},
	)

	GradeHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classquiz_submission_grade",
			Help:    "Distribution of submitted quiz grades",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classquiz_sweep_runs_total",
			Help: "Total number of completion sweeps by status",
		},
		[]string{"status"},
	)

	SweepQuizzesCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classquiz_sweep_quizzes_completed_total",
			Help: "Total number of scheduled quizzes closed by the completion sweep",
		},
	)

	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "classquiz_sweep_duration_seconds",
			Help:    "Completion sweep duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)
