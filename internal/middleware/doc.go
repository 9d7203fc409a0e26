// trackerd - GPS tracking server for sailing events
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package middleware provides HTTP middleware for trackerd's admin/manager/
public HTTP surface: request ID propagation and Prometheus request
instrumentation. CORS and per-IP HTTP throttling are provided directly by
go-chi/cors and go-chi/httprate in internal/api's router setup rather than
wrapped here.

Key Components:

  - RequestID: assigns (or reuses) a request ID per request and stamps it,
    plus a fresh correlation ID, onto the request context via
    internal/logging so log lines written while handling the request can
    be correlated.
  - PrometheusMetrics: wraps a handler to record trackerd_api_requests_total
    and trackerd_api_request_duration_seconds.

Usage Example:

	http.HandleFunc("/api/v1/events",
	    middleware.RequestID(
	        middleware.PrometheusMetrics(handler),
	    ),
	)

Access the request ID in a handler:

	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    log.Printf("[%s] processing request", requestID)
	}

Thread Safety:

Both middlewares are safe for concurrent use: RequestID stores values on
the immutable request context, and PrometheusMetrics uses the underlying
prometheus client's atomic counters/histograms.

See Also:

  - internal/api: HTTP handlers wrapped by this middleware
  - internal/metrics: Prometheus metric definitions
  - internal/logging: correlation-ID context propagation
*/
package middleware
