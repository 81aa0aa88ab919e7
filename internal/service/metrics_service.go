package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the portal.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	decisionsTotal  *prometheus.CounterVec
	paymentsTotal   prometheus.Counter
	paymentsAmount  prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the portal's Prometheus collectors.
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

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_decisions_total",
		Help: "Registration review decisions by outcome",
	}, []string{"decision"})

	paymentsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Total number of recorded payments",
	})

	paymentsAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_amount_total",
		Help: "Sum of recorded payment amounts",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_cache_hits_total",
		Help: "Dashboard metric cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dashboard_cache_misses_total",
		Help: "Dashboard metric cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, decisionsTotal, paymentsTotal, paymentsAmount, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		decisionsTotal:  decisionsTotal,
		paymentsTotal:   paymentsTotal,
		paymentsAmount:  paymentsAmount,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
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

// RecordRegistrationDecision counts an approval or rejection.
func (m *MetricsService) RecordRegistrationDecision(decision string) {
	if m == nil {
		return
	}
	m.decisionsTotal.WithLabelValues(decision).Inc()
}

// RecordPayment counts a recorded payment and its amount.
func (m *MetricsService) RecordPayment(amount float64) {
	if m == nil {
		return
	}
	m.paymentsTotal.Inc()
	m.paymentsAmount.Add(amount)
}

// RecordDashboardCache counts a dashboard cache lookup.
func (m *MetricsService) RecordDashboardCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
