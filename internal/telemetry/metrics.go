// Package telemetry exposes simulation counters in the Prometheus format.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every homesim collector on its own registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks          prometheus.Counter
	arrivals       *prometheus.CounterVec
	lookupFailures prometheus.Counter
	publishes      *prometheus.CounterVec
	paused         prometheus.Gauge
	halted         prometheus.Gauge
	progress       prometheus.Gauge
	tickDuration   prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homesim_ticks_total",
			Help: "Total simulation ticks applied.",
		}),
		arrivals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homesim_arrivals_total",
			Help: "Total arrivals by destination room.",
		}, []string{"room"}),
		lookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homesim_lookup_failures_total",
			Help: "Total environment lookups with no matching row.",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homesim_actuator_publish_total",
			Help: "Total actuator commands published by sink and result.",
		}, []string{"sink", "result"}),
		paused: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "homesim_paused",
			Help: "1 while the simulation is paused.",
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "homesim_halted",
			Help: "1 once the tick loop has halted on an error.",
		}),
		progress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "homesim_progress",
			Help: "Progress along the current leg, 0 to 1.",
		}),
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homesim_tick_duration_seconds",
			Help:    "Wall-clock time spent applying one tick.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homesim_http_requests_total",
			Help: "Total HTTP requests by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homesim_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.ticks,
		m.arrivals,
		m.lookupFailures,
		m.publishes,
		m.paused,
		m.halted,
		m.progress,
		m.tickDuration,
		m.httpRequests,
		m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Tick records one applied tick and the leg progress after it.
func (m *Metrics) Tick(d time.Duration, progress float64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.tickDuration.Observe(d.Seconds())
	m.progress.Set(progress)
}

func (m *Metrics) Arrival(room string) {
	if m == nil {
		return
	}
	m.arrivals.WithLabelValues(room).Inc()
}

func (m *Metrics) LookupFailure() {
	if m == nil {
		return
	}
	m.lookupFailures.Inc()
}

// Publish records one actuator publish attempt.
func (m *Metrics) Publish(sink string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.publishes.WithLabelValues(sink, result).Inc()
}

// SetState mirrors the engine's pause and halt flags.
func (m *Metrics) SetState(paused, halted bool) {
	if m == nil {
		return
	}
	m.paused.Set(boolGauge(paused))
	m.halted.Set(boolGauge(halted))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming handlers working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler counts requests and their duration under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
