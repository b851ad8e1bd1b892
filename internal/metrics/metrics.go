// Package metrics holds the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aivodrive_http_requests_total",
		Help: "HTTP requests by method, route template and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aivodrive_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route template",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	StatusTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aivodrive_status_transitions_total",
		Help: "Entity status transitions applied by the status-sync rules",
	}, []string{"entity", "from", "to"})

	AlertsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aivodrive_alerts_generated_total",
		Help: "Alerts produced by the alert generation job, by type",
	}, []string{"type"})
)

// Transition records one status change of entity.
func Transition(entity, from, to string) {
	if from == "" {
		from = "none"
	}
	StatusTransitions.WithLabelValues(entity, from, to).Inc()
}
