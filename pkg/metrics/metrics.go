package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for restflow components. All observer
// methods are nil-safe so instrumentation can be compiled in unconditionally
// and enabled by passing a registry.
type Registry struct {
	// Request pipeline metrics
	RequestsTotal   *prometheus.CounterVec
	RequestErrors   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Response cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Throttling metrics
	ThrottleWait prometheus.Histogram

	// Identity map metrics
	IdentityMapSize *prometheus.GaugeVec
}

// NewRegistry creates a metrics registry with the given Prometheus
// registerer. An empty namespace defaults to "restflow".
func NewRegistry(reg prometheus.Registerer, namespace string) *Registry {
	if namespace == "" {
		namespace = "restflow"
	}
	factory := promauto.With(reg)

	return &Registry{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "request",
				Name:      "requests_total",
				Help:      "Total number of API requests sent",
			},
			[]string{"method"},
		),

		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "request",
				Name:      "errors_total",
				Help:      "Total number of failed API requests",
			},
			[]string{"method", "status"},
		),

		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "request",
				Name:      "duration_seconds",
				Help:      "Time spent performing API requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),

		CacheHits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of responses served from the cache",
			},
		),

		CacheMisses: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
		),

		ThrottleWait: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "throttle",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting for rate limit approval",
				Buckets:   prometheus.DefBuckets,
			},
		),

		IdentityMapSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "identity",
				Name:      "map_size",
				Help:      "Resources tracked in the identity map, per type",
			},
			[]string{"resource"},
		),
	}
}

// SetIdentityMapSize records the identity map size for one resource type.
func (r *Registry) SetIdentityMapSize(resource string, n int) {
	if r == nil {
		return
	}
	r.IdentityMapSize.WithLabelValues(resource).Set(float64(n))
}

// ObserveRequest records a completed request.
func (r *Registry) ObserveRequest(method string, status int, d time.Duration, failed bool) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method).Inc()
	r.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
	if failed {
		r.RequestErrors.WithLabelValues(method, strconv.Itoa(status)).Inc()
	}
}

// ObserveCache records a cache lookup outcome.
func (r *Registry) ObserveCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.Inc()
	} else {
		r.CacheMisses.Inc()
	}
}

// ObserveThrottleWait records time spent waiting on the rate limiter.
func (r *Registry) ObserveThrottleWait(d time.Duration) {
	if r == nil {
		return
	}
	r.ThrottleWait.Observe(d.Seconds())
}
