// Package metrics exposes prometheus instrumentation for the ingestion core
// and implements the storage wrapper's MetricsHook.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the registry and the instruments the core observes.
type Metrics struct {
	registry *prometheus.Registry

	ReadingsAccepted *prometheus.CounterVec
	ReadingsRejected *prometheus.CounterVec
	PruneDeleted     *prometheus.CounterVec
	PruneFailures    prometheus.Counter
	BroadcastDropped prometheus.Counter
	StorageCommit    prometheus.Histogram
}

// New builds a Metrics bundle on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ReadingsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitals_readings_accepted_total",
			Help: "Readings durably accepted, by patient.",
		}, []string{"patient"}),
		ReadingsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitals_readings_rejected_total",
			Help: "Readings rejected before persistence, by reason.",
		}, []string{"reason"}),
		PruneDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vitals_prune_deleted_total",
			Help: "Readings removed by retention, by bound (age or count).",
		}, []string{"bound"}),
		PruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vitals_prune_failures_total",
			Help: "Prune passes that failed after an accepted reading.",
		}),
		BroadcastDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vitals_broadcast_dropped_total",
			Help: "Readings dropped for slow subscribers.",
		}),
		StorageCommit: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "vitals_storage_commit_seconds",
			Help:    "Pebble batch commit latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		m.ReadingsAccepted,
		m.ReadingsRejected,
		m.PruneDeleted,
		m.PruneFailures,
		m.BroadcastDropped,
		m.StorageCommit,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StorageHook adapts the bundle to the storage wrapper's MetricsHook.
type StorageHook struct{ m *Metrics }

// NewStorageHook returns the MetricsHook implementation for the Pebble wrapper.
func (m *Metrics) NewStorageHook() *StorageHook { return &StorageHook{m: m} }

func (h *StorageHook) ObserveWrite(time.Duration, int) {}
func (h *StorageHook) ObserveRead(time.Duration, int)  {}

func (h *StorageHook) ObserveBatchCommit(elapsed time.Duration, _ int, _ int) {
	h.m.StorageCommit.Observe(elapsed.Seconds())
}
