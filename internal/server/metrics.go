package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"flowlab/grader/internal/rules"
)

// kindLabel bounds the kind label to the known rule kinds
func kindLabel(k rules.Kind) string {
	if k.Valid() {
		return string(k)
	}
	return "unknown"
}

// Metrics holds the server's Prometheus collectors on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	requests    *prometheus.CounterVec
	validations *prometheus.CounterVec
	scores      *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
	recordFails prometheus.Counter
}

// NewMetrics creates and registers the collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "grader_validations_total",
			Help: "Validations by rule kind and outcome.",
		}, []string{"kind", "valid"}),
		scores: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_validation_score",
			Help:    "Distribution of validation scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "grader_validation_duration_seconds",
			Help:    "Time spent validating one workflow.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"kind"}),
		recordFails: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "grader_attempt_record_failures_total",
			Help: "Attempts that could not be written to the store.",
		}),
	}
	m.Registry.MustRegister(
		m.requests, m.validations, m.scores, m.duration, m.recordFails,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
