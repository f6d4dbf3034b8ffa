// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/callrelay/internal/logging"
)

// AccessLog writes one structured line per completed request. Query strings
// are not logged because the websocket handshake may carry a token there.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := newStatusResponseWriter(w)

		next.ServeHTTP(ww, r)

		logger := logging.Ctx(r.Context())
		var event *zerolog.Event
		switch {
		case ww.statusCode >= 500:
			event = logger.Error()
		case ww.statusCode >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		event.
			Str("method", r.Method).
			Str("path", logging.SanitizeLogValue(r.URL.Path)).
			Int("status", ww.statusCode).
			Int("bytes", ww.bytes).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", logging.SanitizeLogValue(r.UserAgent())).
			Bool("upgraded", ww.hijacked).
			Msg("HTTP request")
	})
}
