package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the rotation engine.
type Metrics struct {
	registry            *prometheus.Registry
	requestsTotal       prometheus.Counter
	rotationsTotal      prometheus.Counter
	probeFailuresTotal  prometheus.Counter
	playbackErrorsTotal prometheus.Counter
	libraryClips        prometheus.Gauge
	errorsTotal         prometheus.Counter
}

// New creates and registers Prometheus metrics for the engine.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ambientloop_requests_total",
		Help: "Total number of HTTP requests received",
	})
	rotationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ambientloop_rotations_total",
		Help: "Total number of completed clip rotations",
	})
	probeFailuresTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ambientloop_probe_failures_total",
		Help: "Total number of metadata probes degraded to the square bucket",
	})
	playbackErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ambientloop_playback_errors_total",
		Help: "Total number of playback errors reported by the active surface",
	})
	libraryClips := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ambientloop_library_clips",
		Help: "Number of clips in the library",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ambientloop_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})

	registry.MustRegister(
		requestsTotal,
		rotationsTotal,
		probeFailuresTotal,
		playbackErrorsTotal,
		libraryClips,
		errorsTotal,
	)

	return &Metrics{
		registry:            registry,
		requestsTotal:       requestsTotal,
		rotationsTotal:      rotationsTotal,
		probeFailuresTotal:  probeFailuresTotal,
		playbackErrorsTotal: playbackErrorsTotal,
		libraryClips:        libraryClips,
		errorsTotal:         errorsTotal,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncRotations increments the completed rotations counter.
func (m *Metrics) IncRotations() {
	m.rotationsTotal.Inc()
}

// IncProbeFailures increments the degraded probes counter.
func (m *Metrics) IncProbeFailures() {
	m.probeFailuresTotal.Inc()
}

// IncPlaybackErrors increments the playback errors counter.
func (m *Metrics) IncPlaybackErrors() {
	m.playbackErrorsTotal.Inc()
}

// SetLibraryClips sets the library size gauge.
func (m *Metrics) SetLibraryClips(n int) {
	m.libraryClips.Set(float64(n))
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
