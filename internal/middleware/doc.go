// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package middleware provides HTTP middleware components for the relay server.

All middleware uses the chi signature func(http.Handler) http.Handler.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation IDs in
    the logging context
  - AccessLog: one structured log line per request
  - PrometheusMetrics: request count, latency and in-flight instrumentation,
    labelled by chi route pattern
  - SecurityHeaders: nosniff, frame and referrer headers, HSTS over TLS
  - HTTPSRedirect: forces https behind a TLS-terminating proxy in production
  - Compression: gzip for JSON responses above 1KB

The response writer wrappers here all pass through http.Hijacker and
http.Flusher, so they can sit in front of the websocket endpoint.
*/
package middleware
