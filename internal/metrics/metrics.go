// Package metrics exposes Prometheus counters for the submission flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts submission attempts by terminal outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meallog_submissions_total",
		Help: "Submission attempts by outcome.",
	}, []string{"outcome"})

	// LogSaves counts log store writes.
	LogSaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meallog_log_saves_total",
		Help: "Successful log store writes.",
	})

	// LogSaveFailures counts log store write failures.
	LogSaveFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meallog_log_save_failures_total",
		Help: "Failed log store writes.",
	})
)
