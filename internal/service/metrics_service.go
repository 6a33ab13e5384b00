package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// scheduling pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationDuration *prometheus.HistogramVec
	generationTotal    *prometheus.CounterVec
	oracleCalls        *prometheus.CounterVec
	quotaErrors        prometheus.Counter
	cooldownActive     prometheus.Gauge
}

// NewMetricsService registers the collectors.
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

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Total catalog cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_cache_misses_total",
		Help: "Total catalog cache misses",
	})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "schedule_generation_duration_seconds",
		Help:    "Duration of schedule generation by strategy",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"strategy"})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_generations_total",
		Help: "Total schedule generation attempts by strategy and outcome",
	}, []string{"strategy", "outcome"})

	oracleCalls := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_calls_total",
		Help: "Total oracle invocations by model and result",
	}, []string{"model", "result"})

	quotaErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oracle_quota_errors_total",
		Help: "Total quota-kind oracle errors",
	})

	cooldownActive := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_cooldown_active",
		Help: "Whether the oracle quota cooldown is currently active",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses,
		generationDuration, generationTotal, oracleCalls, quotaErrors, cooldownActive, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationDuration: generationDuration,
		generationTotal:    generationTotal,
		oracleCalls:        oracleCalls,
		quotaErrors:        quotaErrors,
		cooldownActive:     cooldownActive,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup tracks catalog cache hits and misses.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveGeneration records one completed generation attempt.
func (m *MetricsService) ObserveGeneration(strategy, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	m.generationTotal.WithLabelValues(strategy, outcome).Inc()
}

// RecordOracleCall tracks one oracle invocation result.
func (m *MetricsService) RecordOracleCall(model, result string) {
	if m == nil {
		return
	}
	m.oracleCalls.WithLabelValues(model, result).Inc()
}

// RecordQuotaError bumps the quota error counter.
func (m *MetricsService) RecordQuotaError() {
	if m == nil {
		return
	}
	m.quotaErrors.Inc()
}

// SetCooldownActive reflects the guard state on the gauge.
func (m *MetricsService) SetCooldownActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.cooldownActive.Set(1)
	} else {
		m.cooldownActive.Set(0)
	}
}
