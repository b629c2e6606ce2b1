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

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	importTotal        *prometheus.CounterVec
	importDuration     prometheus.Observer
	importRows         *prometheus.CounterVec
	enrollmentCreates  *prometheus.CounterVec
	projectionDuration prometheus.Observer
	dashboardSaves     *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	importTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_imports_total",
		Help: "Roster imports by final status",
	}, []string{"status"})

	importDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_import_duration_seconds",
		Help:    "End to end duration of roster imports",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rows_total",
		Help: "Imported rows by reconciliation outcome",
	}, []string{"outcome"})

	enrollmentCreates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_enrollment_creations_total",
		Help: "Enrollment creation attempts by result",
	}, []string{"result"})

	projectionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_projection_duration_seconds",
		Help:    "Duration of enrollment projection rebuilds",
		Buckets: prometheus.DefBuckets,
	})

	dashboardSaves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dashboard_saves_total",
		Help: "Dashboard snapshot saves by mode and result",
	}, []string{"mode", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		importTotal, importDuration, importRows, enrollmentCreates, projectionDuration, dashboardSaves, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		importTotal:        importTotal,
		importDuration:     importDuration,
		importRows:         importRows,
		enrollmentCreates:  enrollmentCreates,
		projectionDuration: projectionDuration,
		dashboardSaves:     dashboardSaves,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and additional collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveImport records a finished import.
func (m *MetricsService) ObserveImport(status string, created, updated, enrolled, skipped int, duration time.Duration) {
	if m == nil {
		return
	}
	m.importTotal.WithLabelValues(status).Inc()
	m.importDuration.Observe(duration.Seconds())
	m.importRows.WithLabelValues("created").Add(float64(created))
	m.importRows.WithLabelValues("updated").Add(float64(updated))
	m.importRows.WithLabelValues("enrolled").Add(float64(enrolled))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
}

// RecordEnrollmentCreation counts one enrollment creation attempt.
func (m *MetricsService) RecordEnrollmentCreation(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.enrollmentCreates.WithLabelValues(result).Inc()
}

// ObserveProjection records a projection rebuild.
func (m *MetricsService) ObserveProjection(duration time.Duration) {
	if m == nil {
		return
	}
	m.projectionDuration.Observe(duration.Seconds())
}

// RecordDashboardSave counts a snapshot save attempt.
func (m *MetricsService) RecordDashboardSave(mode string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.dashboardSaves.WithLabelValues(mode, result).Inc()
}
