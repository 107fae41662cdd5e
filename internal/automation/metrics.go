package automation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "autopilot_tasks_submitted_total",
			Help: "Total number of automation tasks accepted",
		},
	)

	platformOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_platform_runs_total",
			Help: "Platform runs by final status",
		},
		[]string{"platform", "status"}, // completed, failed, error
	)

	applicationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_applications_total",
			Help: "Application attempts by outcome",
		},
		[]string{"platform", "succeeded"},
	)

	listingsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autopilot_listings_collected_total",
			Help: "Listings extracted from result pages",
		},
		[]string{"platform"},
	)

	platformDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "autopilot_platform_run_duration_seconds",
			Help:    "Wall time of one platform run within a task",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"platform"},
	)
)
