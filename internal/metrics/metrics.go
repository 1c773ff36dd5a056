// Package metrics exposes projection counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels what the router did with an event.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeSkipped Outcome = "skipped"
	OutcomeDropped Outcome = "dropped"
	OutcomeFailed  Outcome = "failed"
)

// Metrics holds the indexer's collectors on a private registry.
type Metrics struct {
	registry   *prometheus.Registry
	events     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	checkpoint *prometheus.GaugeVec
	requests   *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskindexer",
			Name:      "events_total",
			Help:      "Events dispatched, by source, event name and outcome.",
		}, []string{"source", "event", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "taskindexer",
			Name:      "event_apply_seconds",
			Help:      "Time spent applying one event, including the entity lock wait.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"source"}),
		checkpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "taskindexer",
			Name:      "checkpoint_block",
			Help:      "Last fully processed block per stream.",
		}, []string{"stream"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "taskindexer",
			Name:      "http_requests_total",
			Help:      "Query API requests, by route pattern and status code.",
		}, []string{"route", "code"}),
	}
	reg.MustRegister(
		m.events,
		m.duration,
		m.checkpoint,
		m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveEvent counts one dispatched event.
func (m *Metrics) ObserveEvent(source, event string, outcome Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(source, event, string(outcome)).Inc()
	m.duration.WithLabelValues(source).Observe(seconds)
}

// SetCheckpoint records a stream's checkpoint block.
func (m *Metrics) SetCheckpoint(stream string, block uint64) {
	if m == nil {
		return
	}
	m.checkpoint.WithLabelValues(stream).Set(float64(block))
}

// ObserveRequest counts one served API request.
func (m *Metrics) ObserveRequest(route string, code int) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}

// RequestCount returns the current value of one http_requests_total series.
func (m *Metrics) RequestCount(route string, code int) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.requests.WithLabelValues(route, strconv.Itoa(code)))
}

// EventCount returns the current value of one events_total series.
func (m *Metrics) EventCount(source, event string, outcome Outcome) float64 {
	if m == nil {
		return 0
	}
	return counterValue(m.events.WithLabelValues(source, event, string(outcome)))
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
