package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "padel_waitlist"

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer,
// the channel cache and the waitlist pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	claimsTotal     *prometheus.CounterVec
	claimDuration   prometheus.Observer
	tokensIssued    prometheus.Counter
	spotsOffered    prometheus.Counter
	dispatchTotal   *prometheus.CounterVec
	workflowTotal   *prometheus.CounterVec
	retryDropped    prometheus.Counter
}

// NewMetricsService registers the service collectors plus the Go runtime and
// process collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{registry: registry}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests by route template.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route template.",
	}, []string{"method", "route", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "read_seconds",
		Help:      "Latency of channel cache reads.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})
	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "write_seconds",
		Help:      "Latency of channel cache writes.",
		Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Channel cache lookups by result (hit or miss).",
	}, []string{"result"})

	m.claimsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "claims_total",
		Help:      "Claim attempts by result.",
	}, []string{"result"})
	claimDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "claim_duration_seconds",
		Help:      "Time spent resolving a claim, including the database transaction.",
		Buckets:   prometheus.DefBuckets,
	})

	m.tokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tokens_issued_total",
		Help:      "Enrollment tokens minted.",
	})
	m.spotsOffered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "spots_offered_total",
		Help:      "Spots offered through enrollment tokens.",
	})

	m.dispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "dispatch_total",
		Help:      "Broadcast attempts by result.",
	}, []string{"result"})
	m.workflowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "workflow_total",
		Help:      "Capacity-freed workflow runs by outcome.",
	}, []string{"outcome"})
	m.retryDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "dispatch_retry_dropped_total",
		Help:      "Broadcast retries abandoned after exhausting attempts.",
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		cacheLatency, cacheWrite, m.cacheLookups,
		m.claimsTotal, claimDuration,
		m.tokensIssued, m.spotsOffered,
		m.dispatchTotal, m.workflowTotal, m.retryDropped,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m.cacheLatency = cacheLatency
	m.cacheWrite = cacheWrite
	m.claimDuration = claimDuration
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, route, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, route, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveClaim counts a claim attempt by result label.
func (m *MetricsService) ObserveClaim(result string) {
	if m == nil {
		return
	}
	m.claimsTotal.WithLabelValues(result).Inc()
}

// ObserveClaimDuration records how long a claim took to resolve.
func (m *MetricsService) ObserveClaimDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.claimDuration.Observe(duration.Seconds())
}

// ObserveTokenIssued counts a minted token and the spots it offers.
func (m *MetricsService) ObserveTokenIssued(spots int) {
	if m == nil {
		return
	}
	m.tokensIssued.Inc()
	m.spotsOffered.Add(float64(spots))
}

// ObserveDispatch counts a broadcast attempt by result label.
func (m *MetricsService) ObserveDispatch(result string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(result).Inc()
}

// ObserveWorkflow counts a workflow run by outcome label.
func (m *MetricsService) ObserveWorkflow(outcome string) {
	if m == nil {
		return
	}
	m.workflowTotal.WithLabelValues(outcome).Inc()
}

// ObserveRetryDropped counts an abandoned broadcast retry.
func (m *MetricsService) ObserveRetryDropped() {
	if m == nil {
		return
	}
	m.retryDropped.Inc()
}
