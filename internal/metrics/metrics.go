// Package metrics registers the Prometheus collectors every vaptord
// process exposes on /metrics, adapted from the platform's infrastructure
// metrics package into the fields this control plane actually emits: HTTP
// request rate/latency on the orchestrator, stage execution outcomes on
// every worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTPRequestsTotal counts every REST request the orchestrator serves.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vaptord_http_requests_total",
		Help: "Total HTTP requests served by the orchestrator API.",
	},
	[]string{"method", "path", "status"},
)

// HTTPRequestDuration tracks request latency by route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vaptord_http_request_duration_seconds",
		Help:    "Orchestrator HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "path"},
)

// StageExecutionsTotal counts every stage a worker ran, by outcome.
var StageExecutionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vaptord_stage_executions_total",
		Help: "Total stage executions by module and outcome.",
	},
	[]string{"module", "outcome"},
)

// StageDuration tracks how long a stage took end to end, including any
// external tool invocation.
var StageDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "vaptord_stage_duration_seconds",
		Help:    "Stage execution duration in seconds, by module.",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
	},
	[]string{"module"},
)

// ScansCreatedTotal counts every scan Dispatcher.Create accepts.
var ScansCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "vaptord_scans_created_total",
		Help: "Total scans accepted by the dispatcher.",
	},
)

// ScansCompletedTotal counts every scan that reaches a terminal status.
var ScansCompletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "vaptord_scans_completed_total",
		Help: "Total scans reaching a terminal status, by status.",
	},
	[]string{"status"},
)
