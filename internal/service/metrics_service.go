package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a point-in-time read of the counters backing the
// Prometheus collectors, for callers that want plain numbers instead of
// scraping /metrics.
type MetricsSnapshot struct {
	RequestsTotal             uint64
	AverageRequestDurationMs  float64
	PipelineRunsTotal         uint64
	AveragePipelineDurationMs float64
	Goroutines                int
	GeneratedAt               time.Time
}

// MetricsService instruments the HTTP surface and the generation
// pipeline's per-stage timings. Cache-hit-ratio and DB-query collectors
// from the teacher's metrics service are dropped: this service has no
// standing cache or database to observe, only a per-run in-memory store.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	runTotal        *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	runDurationTotal     uint64
}

// NewMetricsService registers the HTTP and pipeline-stage collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	stageDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_pipeline_stage_duration_seconds",
		Help:    "Duration of each schedule-generation pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	runTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_pipeline_runs_total",
		Help: "Total schedule-generation runs by terminal state",
	}, []string{"state"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, stageDuration, runTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		stageDuration:   stageDuration,
		runTotal:        runTotal,
	}
}

// Handler exposes the Prometheus HTTP handler for /metrics.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one completed HTTP request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveStage records one pipeline stage's wall-clock duration.
func (m *MetricsService) ObserveStage(stage string, duration time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// ObserveRunCompletion records a finished run's terminal state and total
// wall-clock duration.
func (m *MetricsService) ObserveRunCompletion(state string, duration time.Duration) {
	if m == nil {
		return
	}
	m.runTotal.WithLabelValues(state).Inc()
	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.runDurationTotal, uint64(duration.Nanoseconds()))
}

// Snapshot returns aggregated counters for lightweight API consumption.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	runs := atomic.LoadUint64(&m.runCount)
	runDuration := atomic.LoadUint64(&m.runDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var avgRunMs float64
	if runs > 0 {
		avgRunMs = float64(runDuration) / float64(runs) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:             requests,
		AverageRequestDurationMs:  avgRequestMs,
		PipelineRunsTotal:         runs,
		AveragePipelineDurationMs: avgRunMs,
		Goroutines:                runtime.NumGoroutine(),
		GeneratedAt:               time.Now().UTC(),
	}
}
