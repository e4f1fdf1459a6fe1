package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/cfsui/pkg/nav"
	"github.com/vango-dev/cfsui/pkg/tmpl"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "cfsui").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
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
		Namespace: "cfsui",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors. Create one per registry.
type Metrics struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	navigationsTotal   *prometheus.CounterVec
	navigationDuration prometheus.Histogram
	rendersTotal       *prometheus.CounterVec
	renderDuration     *prometheus.HistogramVec
	staleDropped       prometheus.Counter
}

// NewMetrics registers the collectors with the configured registry.
//
// Metrics collected:
//   - cfsui_http_requests_total: requests by route, method and status
//   - cfsui_http_request_duration_seconds: request latency by route and method
//   - cfsui_http_requests_in_flight: requests being served
//   - cfsui_navigations_total: navigations by outcome
//   - cfsui_navigation_duration_seconds: time spent dispatching a navigation
//   - cfsui_renders_total: renders by template and result
//   - cfsui_render_duration_seconds: render latency by template
//   - cfsui_stale_responses_total: completions dropped as stale
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_total",
			Help:        "Total number of HTTP requests served",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"route", "method"}),

		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests being served",
			ConstLabels: config.ConstLabels,
		}),

		navigationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigations_total",
			Help:        "Total number of navigations by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		navigationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "navigation_duration_seconds",
			Help:        "Time spent dispatching a navigation in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		rendersTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "renders_total",
			Help:        "Total number of template renders by result",
			ConstLabels: config.ConstLabels,
		}, []string{"template", "result"}),

		renderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "render_duration_seconds",
			Help:        "Template render duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"template"}),

		staleDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "stale_responses_total",
			Help:        "Total number of completions dropped because a newer navigation started",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Handler records request count, latency and in-flight requests. Requests
// are labelled with the chi route pattern to keep cardinality bounded.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.requestsInFlight.Inc()
		defer m.requestsInFlight.Dec()

		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := routePattern(r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
	})
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// Observer returns a nav.Observer that records navigation metrics.
func (m *Metrics) Observer() nav.Observer {
	return metricsObserver{m}
}

type metricsObserver struct{ m *Metrics }

func (o metricsObserver) Navigated(path, route string, outcome nav.Outcome, d time.Duration) {
	o.m.navigationsTotal.WithLabelValues(string(outcome)).Inc()
	o.m.navigationDuration.Observe(d.Seconds())
}

func (o metricsObserver) Rendered(templateID string, d time.Duration, err error) {
	o.m.renderDuration.WithLabelValues(templateID).Observe(d.Seconds())
	o.m.rendersTotal.WithLabelValues(templateID, categorizeError(err)).Inc()
}

func (o metricsObserver) StaleDropped(path string) {
	o.m.staleDropped.Inc()
}

// categorizeError maps render errors onto a small label set.
func categorizeError(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, nav.ErrTemplateNotFound):
		return "template_not_found"
	case errors.Is(err, tmpl.ErrSyntax):
		return "syntax"
	case errors.Is(err, tmpl.ErrUndefined):
		return "undefined"
	case errors.Is(err, tmpl.ErrType), errors.Is(err, tmpl.ErrNoField), errors.Is(err, tmpl.ErrIndex):
		return "evaluation"
	default:
		return "internal"
	}
}
