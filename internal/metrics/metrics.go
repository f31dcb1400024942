// Package metrics exposes Prometheus instruments for sync passes, request
// retries and local change events. A nil *Metrics is valid and records
// nothing.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MKhiriev/go-refsync/internal/engine"
	"github.com/MKhiriev/go-refsync/models"
)

const namespace = "refsync"

// Metrics holds the instruments and the registry they are exported from.
type Metrics struct {
	registry *prometheus.Registry

	passDuration *prometheus.HistogramVec
	objects      *prometheus.CounterVec
	conflicts    *prometheus.CounterVec
	restarts     *prometheus.CounterVec
	version      *prometheus.GaugeVec
	retries      prometheus.Counter
	changes      *prometheus.CounterVec
}

// New creates the instruments on a dedicated registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of sync passes in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"library", "success"}),
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Objects transferred by sync passes.",
		}, []string{"library", "direction"}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Conflicts presented for resolution.",
		}, []string{"library"}),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_restarts_total",
			Help:      "Download rounds repeated after a precondition failure.",
		}, []string{"library"}),
		version: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "library_version",
			Help:      "Library version reached by the last pass.",
		}, []string{"library"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_retries_total",
			Help:      "Outbound requests retried after a transient failure.",
		}),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "local_changes_total",
			Help:      "Change events published by the local store.",
		}, []string{"action", "type"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.passDuration, m.objects, m.conflicts, m.restarts, m.version, m.retries, m.changes,
	)
	return m
}

// ObservePass records the summary of a finished pass. A cancelled conflict
// prompt does not count as a failure.
func (m *Metrics) ObservePass(result models.PassResult, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	library := strconv.FormatInt(result.LibraryID, 10)
	success := err == nil || errors.Is(err, engine.ErrUserCancelled)

	m.passDuration.WithLabelValues(library, strconv.FormatBool(success)).Observe(elapsed.Seconds())
	m.objects.WithLabelValues(library, "downloaded").Add(float64(result.Downloaded))
	m.objects.WithLabelValues(library, "uploaded").Add(float64(result.Uploaded))
	m.objects.WithLabelValues(library, "deleted").Add(float64(result.Deleted))
	m.objects.WithLabelValues(library, "queued").Add(float64(result.Queued))
	m.conflicts.WithLabelValues(library).Add(float64(result.Conflicts))
	m.restarts.WithLabelValues(library).Add(float64(result.Restarts))
	if result.Version >= 0 {
		m.version.WithLabelValues(library).Set(float64(result.Version))
	}
}

// ObserveRetry counts a retried request. Its signature matches
// workers.WithRetryObserver.
func (m *Metrics) ObserveRetry(_ error, _ time.Duration) {
	if m == nil {
		return
	}
	m.retries.Inc()
}

// ObserveChange counts a store change event. Its signature matches
// store.Notifier.Subscribe.
func (m *Metrics) ObserveChange(event models.ChangeEvent) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(string(event.Action), string(event.Type)).Add(float64(len(event.Keys)))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the registry the instruments are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
