// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageRunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_runs_completed_total",
			Help: "Total number of pipeline stage runs completed",
		},
		[]string{"stage"},
	)

	StageRunsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_stage_runs_failed_total",
			Help: "Total number of pipeline stage runs failed",
		},
		[]string{"stage", "error_code"},
	)

	StageRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "pipeline_stage_run_duration_seconds",
			Help: "Duration of stage processing in seconds",
		},
		[]string{"stage"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_emails_sent_total",
			Help: "Total outbound emails by kind",
		},
		[]string{"kind"},
	)

	SuppressionHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeline_suppression_hits_total",
			Help: "Sends skipped because the address is suppressed",
		},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "monitor_notifications_dispatched_total",
			Help: "Incident notifications dispatched by recipient class and channel",
		},
		[]string{"recipient", "channel", "outcome"},
	)
)
