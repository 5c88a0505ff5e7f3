// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every instrument on a private Prometheus registry.
type Registry struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	RequestsInFlight  prometheus.Gauge
	ExecutionsTotal   *prometheus.CounterVec
	ExecutionDuration prometheus.Histogram
	IssuesTotal       *prometheus.CounterVec
	ChatMessagesTotal *prometheus.CounterVec
	FlowchartNodes    *prometheus.HistogramVec

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide registry.
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all instruments plus the Go runtime
// and process collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Registry{
		registry: reg,
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeflow_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "codeflow_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		ExecutionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_executions_total",
			Help: "Sandbox executions by outcome (success or error code).",
		}, []string{"outcome"}),
		ExecutionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "codeflow_execution_duration_seconds",
			Help:    "Wall-clock time of sandbox executions.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 15},
		}),
		IssuesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_issues_total",
			Help: "Static scanner findings by category.",
		}, []string{"category"}),
		ChatMessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "codeflow_chat_messages_total",
			Help: "Chat replies by response type.",
		}, []string{"type"}),
		FlowchartNodes: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "codeflow_flowchart_nodes",
			Help:    "Nodes per synthesized flowchart by source.",
			Buckets: []float64{2, 3, 5, 8, 13, 21, 34, 55},
		}, []string{"source"}),
	}
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRequest records one served HTTP request.
func (r *Registry) RecordRequest(route string, status int, d time.Duration) {
	r.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

// RecordExecution records a sandbox outcome: "success" or the error code.
func (r *Registry) RecordExecution(outcome string, seconds float64) {
	r.ExecutionsTotal.WithLabelValues(outcome).Inc()
	r.ExecutionDuration.Observe(seconds)
}

// RecordIssue counts one scanner finding.
func (r *Registry) RecordIssue(category string) {
	r.IssuesTotal.WithLabelValues(category).Inc()
}

// RecordChat counts one chat reply.
func (r *Registry) RecordChat(responseType string) {
	r.ChatMessagesTotal.WithLabelValues(responseType).Inc()
}

// RecordFlowchart observes the size of a synthesized graph. source is
// "problem" or "code".
func (r *Registry) RecordFlowchart(source string, nodes int) {
	r.FlowchartNodes.WithLabelValues(source).Observe(float64(nodes))
}
