// Package telemetry wires the ambient Prometheus metrics shared by the
// state store and the node runtime. It is optional everywhere it is
// consumed: a nil *Metrics disables instrumentation without branching at
// every call site (mirrors the teacher's optional *PrometheusMetrics on
// Engine).
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus-compatible counters and histograms for
// backpack and node-runtime activity. All metrics are namespaced with
// "backpackflow_".
type Metrics struct {
	mu sync.Mutex

	packTotal         *prometheus.CounterVec
	unpackTotal       *prometheus.CounterVec
	accessDeniedTotal *prometheus.CounterVec
	nodeDuration      *prometheus.HistogramVec
	nodeErrors        *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
}

// New registers and returns a Metrics bound to registry. Pass
// prometheus.NewRegistry() for an isolated registry (recommended in
// tests), or prometheus.DefaultRegisterer for process-wide export.
func New(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		packTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backpackflow_pack_total",
			Help: "Total number of successful pack (write) operations, by namespace.",
		}, []string{"namespace"}),
		unpackTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backpackflow_unpack_total",
			Help: "Total number of unpack (read) operations, by namespace.",
		}, []string{"namespace"}),
		accessDeniedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backpackflow_access_denied_total",
			Help: "Total number of permission-denied read/write attempts, by operation.",
		}, []string{"op"}),
		nodeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backpackflow_node_phase_duration_ms",
			Help:    "Node lifecycle phase duration in milliseconds.",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}, []string{"node_id", "phase"}),
		nodeErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backpackflow_node_errors_total",
			Help: "Total number of node lifecycle errors, by node ID.",
		}, []string{"node_id"}),
		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backpackflow_events_total",
			Help: "Total number of events emitted, by event type.",
		}, []string{"type"}),
	}
}

// RecordPack increments the pack counter for namespace. Safe to call on a
// nil *Metrics.
func (m *Metrics) RecordPack(namespace string) {
	if m == nil {
		return
	}
	m.packTotal.WithLabelValues(namespace).Inc()
}

// RecordUnpack increments the unpack counter for namespace.
func (m *Metrics) RecordUnpack(namespace string) {
	if m == nil {
		return
	}
	m.unpackTotal.WithLabelValues(namespace).Inc()
}

// RecordAccessDenied increments the access-denied counter for op ("read" or
// "write").
func (m *Metrics) RecordAccessDenied(op string) {
	if m == nil {
		return
	}
	m.accessDeniedTotal.WithLabelValues(op).Inc()
}

// ObserveNodePhase records how long one lifecycle phase ("prep", "exec",
// "post") took for nodeID.
func (m *Metrics) ObserveNodePhase(nodeID, phase string, ms float64) {
	if m == nil {
		return
	}
	m.nodeDuration.WithLabelValues(nodeID, phase).Observe(ms)
}

// RecordNodeError increments the error counter for nodeID.
func (m *Metrics) RecordNodeError(nodeID string) {
	if m == nil {
		return
	}
	m.nodeErrors.WithLabelValues(nodeID).Inc()
}

// RecordEvent increments the event counter for eventType.
func (m *Metrics) RecordEvent(eventType string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(eventType).Inc()
}
