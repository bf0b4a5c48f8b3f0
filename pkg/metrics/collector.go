package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "mockroute"

// Reload results.
const (
	ReloadSuccess = "success"
	ReloadFailure = "failure"
)

// DefaultDurationBuckets covers immediate canned responses through multi-second
// configured delays and slow upstreams.
var DefaultDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Collector records proxy metrics into a Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	upstreamErrors  *prometheus.CounterVec
	configReloads   *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with registry.
// If registry is nil, a fresh registry is created.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "requests_total",
				Help:      "Total number of requests handled by the proxy",
			},
			[]string{"disposition", "method", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "request_duration_seconds",
				Help:      "Time from receiving a request to writing its response, including configured delays",
				Buckets:   DefaultDurationBuckets,
			},
			[]string{"disposition"},
		),

		upstreamErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "upstream_errors_total",
				Help:      "Total number of outbound calls that failed before a response was received",
			},
			[]string{"target"},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "config_reloads_total",
				Help:      "Total number of configuration reload attempts",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.upstreamErrors,
		c.configReloads,
	)

	return c
}

// ObserveRequest records one handled request.
func (c *Collector) ObserveRequest(disposition, method string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(disposition, method, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(disposition).Observe(elapsed.Seconds())
}

// UpstreamError records a failed outbound call to target.
func (c *Collector) UpstreamError(target string) {
	if c == nil {
		return
	}
	c.upstreamErrors.WithLabelValues(target).Inc()
}

// ConfigReload records a reload attempt. A nil err counts as a success.
func (c *Collector) ConfigReload(err error) {
	if c == nil {
		return
	}
	result := ReloadSuccess
	if err != nil {
		result = ReloadFailure
	}
	c.configReloads.WithLabelValues(result).Inc()
}

// Registry returns the registry the Collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler serving the registry in the Prometheus
// exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
