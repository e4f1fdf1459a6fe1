// Package middleware provides observability for the API server and the
// navigation runtime.
//
// # Prometheus Metrics
//
// Metrics collects HTTP request metrics through Handler and navigation,
// render and stale-response metrics through Observer:
//
//	reg := prometheus.NewRegistry()
//	m := middleware.NewMetrics(middleware.WithRegistry(reg))
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
//
//	c := nav.New(routes, page, nav.WithObserver(m.Observer()))
//
// # OpenTelemetry
//
// OpenTelemetry traces every request, continuing any trace propagated in the
// request headers. Spans are named after the chi route pattern.
//
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("cfsui"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	))
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it in
// main() before starting the server.
//
// # Request Logging
//
// Logger writes one slog record per request, tagged with the chi request id.
package middleware
