// Package metrics exports request, operation and resolver metrics in the
// Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	eventbus "github.com/hanpama/gqlengine/internal/eventbus"
	events "github.com/hanpama/gqlengine/internal/events"
)

// Metrics owns a registry fed by eventbus subscriptions.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	operations     *prometheus.CounterVec
	operationTime  *prometheus.HistogramVec
	resolverCalls  *prometheus.CounterVec
	resolverTime   *prometheus.HistogramVec
	unsubscribeAll []func()
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlengine_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gqlengine_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlengine_operations_total",
			Help: "GraphQL operations by type and outcome.",
		}, []string{"type", "outcome"}),
		operationTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gqlengine_operation_duration_seconds",
			Help:    "GraphQL operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
		resolverCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlengine_resolver_calls_total",
			Help: "Resolver calls by field and outcome.",
		}, []string{"field", "outcome"}),
		resolverTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gqlengine_resolver_duration_seconds",
			Help:    "Resolver latency by field.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"field"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests, m.httpDuration,
		m.operations, m.operationTime,
		m.resolverCalls, m.resolverTime,
	)
	return m
}

// Subscribe attaches the collectors to the global bus.
func (m *Metrics) Subscribe() {
	m.unsubscribeAll = append(m.unsubscribeAll,
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			m.httpRequests.WithLabelValues(e.Request.Method, strconv.Itoa(e.Status)).Inc()
			m.httpDuration.WithLabelValues(e.Request.Method).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			m.operations.WithLabelValues(e.OperationType, outcome(len(e.Errors) == 0)).Inc()
			m.operationTime.WithLabelValues(e.OperationType).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.FieldResolved) {
			field := e.ObjectType + "." + e.Field
			m.resolverCalls.WithLabelValues(field, outcome(e.Err == nil)).Inc()
			m.resolverTime.WithLabelValues(field).Observe(e.Duration.Seconds())
		}),
	)
}

// Close removes the subscriptions.
func (m *Metrics) Close() {
	for _, f := range m.unsubscribeAll {
		f()
	}
	m.unsubscribeAll = nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func outcome(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
