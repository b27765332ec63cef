package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/technician-availability-api/internal/models"
)

const metricsNamespace = "technician_availability"

// latencyBuckets covers sub-millisecond cache reads up to multi-second range resolutions.
var latencyBuckets = []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5}

// MetricsService owns a private Prometheus registry and keeps running totals
// for the JSON summary endpoint. A nil *MetricsService is a valid no-op.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	cacheOps        *prometheus.HistogramVec
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	dbQueryDuration *prometheus.HistogramVec
	conflicts       *prometheus.CounterVec
	resolutions     *prometheus.CounterVec
	exportJobs      *prometheus.CounterVec
	prunedRows      prometheus.Counter
	rateLimited     *prometheus.CounterVec

	totals metricTotals
}

type metricTotals struct {
	requests        atomic.Uint64
	requestNanos    atomic.Uint64
	cacheHits       atomic.Uint64
	cacheMisses     atomic.Uint64
	dbQueries       atomic.Uint64
	dbQueryNanos    atomic.Uint64
	conflicts       atomic.Uint64
	resolvedDays    atomic.Uint64
	exportsFinished atomic.Uint64
	exportsFailed   atomic.Uint64
	pruned          atomic.Uint64
	rateLimited     atomic.Uint64
}

// NewMetricsService registers the service collectors plus the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	m := &MetricsService{
		registry: registry,
		handler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route template.",
			Buckets:   latencyBuckets,
		}, []string{"method", "route", "status"}),
		cacheOps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "lookup_seconds",
			Help:      "Availability cache lookups by result.",
			Buckets:   latencyBuckets,
		}, []string{"result"}),
		cacheWrite: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "write_seconds",
			Help:      "Availability cache writes.",
			Buckets:   latencyBuckets,
		}),
		cacheHitRatio: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "cache",
			Name:      "hit_ratio",
			Help:      "Hits over lookups since start.",
		}),
		dbQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of store reads and resolutions by query label.",
			Buckets:   latencyBuckets,
		}, []string{"query"}),
		conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exception_conflicts_total",
			Help:      "Exception writes rejected by the conflict detector.",
		}, []string{"kind"}),
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "days_resolved_total",
			Help:      "Days resolved into availability windows, by deciding source.",
		}, []string{"source"}),
		exportJobs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "export_jobs_total",
			Help:      "Availability export jobs by terminal status.",
		}, []string{"status"}),
		prunedRows: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "exceptions_pruned_total",
			Help:      "Expired exception rows removed by maintenance.",
		}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}
	return m
}

// Registry exposes the private registry for tests and extra collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one served request under its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.totals.requests.Add(1)
	m.totals.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio gauge.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.totals.cacheHits.Add(1)
	} else {
		m.totals.cacheMisses.Add(1)
	}
	m.cacheOps.WithLabelValues(result).Observe(duration.Seconds())
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite tracks the duration of a cache write.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records store timing under label.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.totals.dbQueries.Add(1)
	m.totals.dbQueryNanos.Add(uint64(duration.Nanoseconds()))
}

// RecordConflict counts an exception write rejected with the given conflict kind.
func (m *MetricsService) RecordConflict(kind models.ConflictKind) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(string(kind)).Inc()
	m.totals.conflicts.Add(1)
}

// RecordResolution counts resolved days by their deciding source.
func (m *MetricsService) RecordResolution(days []models.DayAvailability) {
	if m == nil {
		return
	}
	for _, day := range days {
		m.resolutions.WithLabelValues(day.Source).Inc()
	}
	m.totals.resolvedDays.Add(uint64(len(days)))
}

// RecordExportJob counts an export job reaching a terminal status.
func (m *MetricsService) RecordExportJob(status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(status)).Inc()
	switch status {
	case models.ExportStatusFinished:
		m.totals.exportsFinished.Add(1)
	case models.ExportStatusFailed:
		m.totals.exportsFailed.Add(1)
	}
}

// RecordPrunedExceptions adds to the maintenance prune counter.
func (m *MetricsService) RecordPrunedExceptions(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.prunedRows.Add(float64(n))
	m.totals.pruned.Add(uint64(n))
}

// RecordRateLimited counts a request rejected by the limiter.
func (m *MetricsService) RecordRateLimited(route string) {
	if m == nil {
		return
	}
	m.rateLimited.WithLabelValues(route).Inc()
	m.totals.rateLimited.Add(1)
}

// Snapshot returns the running totals for the metrics summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	ratio, _ := m.hitRatio()
	return models.SystemMetrics{
		CacheHitRatio:            ratio,
		CacheHits:                m.totals.cacheHits.Load(),
		CacheMisses:              m.totals.cacheMisses.Load(),
		RequestsTotal:            m.totals.requests.Load(),
		AverageRequestDurationMs: averageMillis(m.totals.requestNanos.Load(), m.totals.requests.Load()),
		DBQueryCount:             m.totals.dbQueries.Load(),
		AverageDBQueryDurationMs: averageMillis(m.totals.dbQueryNanos.Load(), m.totals.dbQueries.Load()),
		ConflictsRejected:        m.totals.conflicts.Load(),
		DaysResolved:             m.totals.resolvedDays.Load(),
		ExportsSucceeded:         m.totals.exportsFinished.Load(),
		ExportsFailed:            m.totals.exportsFailed.Load(),
		ExceptionsPruned:         m.totals.pruned.Load(),
		RateLimited:              m.totals.rateLimited.Load(),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := m.totals.cacheHits.Load()
	total := hits + m.totals.cacheMisses.Load()
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
