package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the gateway, the
// registry, and the discovery client. All recording methods tolerate a
// nil receiver so components can run without metrics wired.
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Gateway metrics
	GatewayDecisionsTotal *prometheus.CounterVec

	// Registry metrics
	RegistryOperationsTotal *prometheus.CounterVec

	// Discovery client metrics
	DiscoveryCacheHitsTotal   prometheus.Counter
	DiscoveryCacheMissesTotal prometheus.Counter
	HeartbeatFailuresTotal    prometheus.Counter
}

// NewMetrics creates and registers all instruments on registry; a nil
// registry gets a fresh one.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "condoplane_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "condoplane_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		GatewayDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "condoplane_gateway_decisions_total",
				Help: "Authorization decisions rendered by the gateway",
			},
			[]string{"outcome"},
		),
		RegistryOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "condoplane_registry_operations_total",
				Help: "Service registry operations by result",
			},
			[]string{"operation", "result"},
		),
		DiscoveryCacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "condoplane_discovery_cache_hits_total",
				Help: "Discovery lookups served from the client-side cache",
			},
		),
		DiscoveryCacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "condoplane_discovery_cache_misses_total",
				Help: "Discovery lookups that required a registry query",
			},
		),
		HeartbeatFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "condoplane_heartbeat_failures_total",
				Help: "Heartbeat calls that failed and will be retried",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GatewayDecisionsTotal,
		m.RegistryOperationsTotal,
		m.DiscoveryCacheHitsTotal,
		m.DiscoveryCacheMissesTotal,
		m.HeartbeatFailuresTotal,
	)

	return m
}

// Handler serves the metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// GatewayDecision records one authorization decision outcome.
func (m *Metrics) GatewayDecision(outcome string) {
	if m == nil {
		return
	}
	m.GatewayDecisionsTotal.WithLabelValues(outcome).Inc()
}

// RegistryOperation records one registry operation and its result.
func (m *Metrics) RegistryOperation(operation, result string) {
	if m == nil {
		return
	}
	m.RegistryOperationsTotal.WithLabelValues(operation, result).Inc()
}

// DiscoveryCacheHit records a lookup served from the client cache.
func (m *Metrics) DiscoveryCacheHit() {
	if m == nil {
		return
	}
	m.DiscoveryCacheHitsTotal.Inc()
}

// DiscoveryCacheMiss records a lookup that went to the registry.
func (m *Metrics) DiscoveryCacheMiss() {
	if m == nil {
		return
	}
	m.DiscoveryCacheMissesTotal.Inc()
}

// HeartbeatFailure records a failed heartbeat call.
func (m *Metrics) HeartbeatFailure() {
	if m == nil {
		return
	}
	m.HeartbeatFailuresTotal.Inc()
}

// HTTPRequest records one handled HTTP request.
func (m *Metrics) HTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
