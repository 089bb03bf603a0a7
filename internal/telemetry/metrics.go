// Package telemetry exposes the service's Prometheus metrics. One Metrics
// value owns a private registry and satisfies the metric contracts declared
// by the trigger engine, the notification dispatcher, and the HTTP chassis.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"commutewatch/internal/trigger"
	"commutewatch/internal/types"
)

// Metrics holds every collector the service exports.
type Metrics struct {
	registry *prometheus.Registry

	ticks      *prometheus.CounterVec
	decisions  *prometheus.CounterVec
	deliveries *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics with its own registry, including the standard
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		ticks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commutewatch",
			Name:      "trigger_ticks_total",
			Help:      "Poll ticks by trigger pipeline and outcome.",
		}, []string{"trigger", "outcome"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commutewatch",
			Name:      "trigger_decisions_total",
			Help:      "Evaluator decisions by trigger pipeline and reason.",
		}, []string{"trigger", "reason"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commutewatch",
			Name:      "notification_deliveries_total",
			Help:      "Notification delivery outcomes by channel and status.",
		}, []string{"channel", "status"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commutewatch",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route, and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "commutewatch",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	registry.MustRegister(m.ticks, m.decisions, m.deliveries, m.httpRequests, m.httpDuration)
	return m
}

// RecordTick implements trigger.TickMetrics.
func (m *Metrics) RecordTick(kind types.TriggerKind, outcome trigger.TickOutcome) {
	m.ticks.WithLabelValues(string(kind), string(outcome)).Inc()
}

// RecordDecision implements trigger.TickMetrics.
func (m *Metrics) RecordDecision(kind types.TriggerKind, reason types.DecisionReason) {
	m.decisions.WithLabelValues(string(kind), string(reason)).Inc()
}

// RecordDelivery implements notifications.DeliveryMetrics.
func (m *Metrics) RecordDelivery(channel types.ChannelType, status types.DeliveryStatus) {
	m.deliveries.WithLabelValues(string(channel), string(status)).Inc()
}

// RecordRequest implements the HTTP chassis metrics contract.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler returns the /metrics scrape handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
