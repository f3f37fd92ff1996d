package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/lazyblog/pkg/navigation"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "lazyblog").
	Namespace string

	Subsystem string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets. Default: prometheus.DefBuckets
	Buckets []float64

	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "lazyblog",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors. It is safe for concurrent use.
type Metrics struct {
	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	navigations        *prometheus.CounterVec
	navigationDuration *prometheus.HistogramVec
	moduleFetches      *prometheus.CounterVec
	moduleDuration     *prometheus.HistogramVec
	loaderDuration     *prometheus.HistogramVec
	socketConnections  prometheus.Gauge
	socketErrors       *prometheus.CounterVec
}

var _ navigation.Observer = (*Metrics)(nil)

// NewMetrics creates and registers the collectors. Registering twice with
// the same registry panics, as promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, labels)
	}

	return &Metrics{
		httpRequests:       counter("http_requests_total", "Total HTTP requests", "method", "route", "status"),
		httpDuration:       histogram("http_request_duration_seconds", "HTTP request duration in seconds", "method", "route"),
		navigations:        counter("navigations_total", "Navigations by outcome", "outcome"),
		navigationDuration: histogram("navigation_duration_seconds", "Navigation duration in seconds", "outcome"),
		moduleFetches:      counter("module_fetches_total", "Deferred module resolutions by module and result", "module", "result"),
		moduleDuration:     histogram("module_resolve_duration_seconds", "Time spent waiting for deferred modules", "module"),
		loaderDuration:     histogram("loader_duration_seconds", "Route loader duration in seconds", "route", "result"),
		socketConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "socket_connections",
			Help:        "Open navigation sockets",
			ConstLabels: config.ConstLabels,
		}),
		socketErrors: counter("socket_errors_total", "Navigation socket errors by type", "type"),
	}
}

// Handler records request counts and durations. The route label is the
// chi route pattern, which keeps path parameters out of label values.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
	})
}

// NavigationFinished implements navigation.Observer.
func (m *Metrics) NavigationFinished(outcome navigation.Outcome, d time.Duration) {
	m.navigations.WithLabelValues(string(outcome)).Inc()
	m.navigationDuration.WithLabelValues(string(outcome)).Observe(d.Seconds())
}

// ModuleResolved implements navigation.Observer.
func (m *Metrics) ModuleResolved(module string, d time.Duration, err error) {
	m.moduleFetches.WithLabelValues(module, categorizeError(err)).Inc()
	m.moduleDuration.WithLabelValues(module).Observe(d.Seconds())
}

// LoaderFinished implements navigation.Observer.
func (m *Metrics) LoaderFinished(route string, d time.Duration, err error) {
	m.loaderDuration.WithLabelValues(route, categorizeError(err)).Observe(d.Seconds())
}

// SocketOpened records a new navigation socket.
func (m *Metrics) SocketOpened() {
	m.socketConnections.Inc()
}

// SocketClosed records a closed navigation socket.
func (m *Metrics) SocketClosed() {
	m.socketConnections.Dec()
}

// SocketError records a socket error of the given type, e.g. "read",
// "write" or "bad_message".
func (m *Metrics) SocketError(kind string) {
	m.socketErrors.WithLabelValues(kind).Inc()
}

// categorizeError maps an error to a low-cardinality result label.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, navigation.ErrNotFound):
		return "not_found"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
