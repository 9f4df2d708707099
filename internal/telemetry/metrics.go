// Package telemetry exposes Prometheus metrics for the analysis pipeline
// and the HTTP API.
package telemetry

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ayusman/posturelab/internal/posture"
)

// Metrics holds the collectors on a private registry, so several instances
// can live in one process (tests).
type Metrics struct {
	registry *prometheus.Registry

	analyses       *prometheus.CounterVec
	noDetection    prometheus.Counter
	overallScore   prometheus.Histogram
	detectDuration prometheus.Histogram
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	sinkErrors     *prometheus.CounterVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posturelab_analyses_total",
			Help: "Completed posture analyses by view and overall status.",
		}, []string{"view", "status"}),
		noDetection: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posturelab_no_detection_total",
			Help: "Frames or uploads where no complete skeleton was found.",
		}),
		overallScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "posturelab_overall_score",
			Help:    "Distribution of overall posture scores.",
			Buckets: []float64{30, 40, 50, 60, 70, 80, 90, 100},
		}),
		detectDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "posturelab_detect_duration_seconds",
			Help:    "Time spent in the landmark detector per frame.",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posturelab_http_requests_total",
			Help: "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "posturelab_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posturelab_sink_errors_total",
			Help: "Failed deliveries of analyses to downstream sinks.",
		}, []string{"sink"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.analyses,
		m.noDetection,
		m.overallScore,
		m.detectDuration,
		m.httpRequests,
		m.httpDuration,
		m.sinkErrors,
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAnalysis records a finished analysis. A nil analysis counts as a
// frame without a detection.
func (m *Metrics) ObserveAnalysis(a *posture.Analysis) {
	if m == nil {
		return
	}
	if a == nil {
		m.noDetection.Inc()
		return
	}
	m.analyses.WithLabelValues(string(a.ViewType), string(a.OverallStatus)).Inc()
	m.overallScore.Observe(float64(a.OverallScore))
}

// ObserveDetect records one detector call.
func (m *Metrics) ObserveDetect(d time.Duration) {
	if m == nil {
		return
	}
	m.detectDuration.Observe(d.Seconds())
}

// SinkError counts a failed sink delivery.
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Flush keeps streaming handlers working behind the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack passes through to the wrapped writer so websocket upgrades work.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if s.status == http.StatusOK {
		s.status = http.StatusSwitchingProtocols
	}
	return h.Hijack()
}

// WrapHandler counts requests and their durations under the given route label.
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
