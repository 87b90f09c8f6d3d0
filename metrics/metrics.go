// Package metrics defines the Prometheus collectors for the monitoring pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_runs_total",
			Help: "Pipeline runs by job type and final status",
		},
		[]string{"job_type", "status"},
	)

	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "monitor_run_duration_seconds",
			Help:    "Wall time of a pipeline run",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"job_type"},
	)

	PlayersChecked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "monitor_players_checked_total",
			Help: "Players fetched and persisted successfully",
		},
	)

	PlayerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_player_errors_total",
			Help: "Per-player and per-batch errors recorded in run summaries",
		},
		[]string{"job_type"},
	)

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_notifications_total",
			Help: "Notification decisions by event and outcome (delivered, failed, duplicate, opted_out)",
		},
		[]string{"event", "outcome"},
	)

	UpstreamCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "monitor_upstream_circuit_state",
			Help: "Chess.com circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeDuplicate = "duplicate"
	OutcomeOptedOut  = "opted_out"
)
