// Package controller contains the HTTP middlewares and helper handlers shared
// by the API server.
//
// Middlewares:
//   - WithCORS: CORS headers and OPTIONS preflight for the allowed origins.
//   - WithLogger: request ID and request-scoped logger, plus an access log line.
//   - WithTimeout: a deadline on the request context.
//   - HTTPMetrics.Wrap: Prometheus request counter and latency histogram.
//
// Helpers:
//   - RegisterPprof: mounts net/http/pprof under /debug/pprof/.
//   - Chain: applies middlewares in reading order.
package controller

import "net/http"

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// Chain wraps h so that the first middleware sees the request first.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}

	return h
}
