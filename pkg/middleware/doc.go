// Package middleware provides the observability layer of the server.
//
// # Prometheus Metrics
//
// NewMetrics registers the HTTP, navigation and socket collectors:
//   - lazyblog_http_requests_total and lazyblog_http_request_duration_seconds
//     by method, route pattern and status
//   - lazyblog_navigations_total and lazyblog_navigation_duration_seconds by
//     outcome
//   - lazyblog_module_fetches_total by module and result
//   - lazyblog_loader_duration_seconds by route and result
//   - lazyblog_socket_connections and lazyblog_socket_errors_total
//
// Metrics.Handler is a chi-compatible middleware. Metrics also implements
// navigation.Observer, so it can be handed to every Navigator:
//
//	m := middleware.NewMetrics(middleware.WithNamespace("lazyblog"))
//	r := chi.NewRouter()
//	r.Use(m.Handler)
//	nav := navigation.New(routes, sink, navigation.WithObserver(m))
//
// # OpenTelemetry
//
// Tracing starts a server span per request, continuing any trace carried
// in the request headers. The span is named after the chi route pattern
// once routing has happened:
//
//	r.Use(middleware.Tracing(middleware.WithSpanFilter(func(r *http.Request) bool {
//	    return r.URL.Path != "/healthz"
//	})))
//
// The global tracer provider is used unless WithTracerProvider is given.
package middleware
