// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package api provides the HTTP surface of the relay using the Chi router.

Endpoints:

	POST /auth/login                  operator login, returns a session token
	POST /webhooks/recording          provider recording-status callback
	GET  /webhooks/recordings         recent recordings from the provider
	GET  /webhooks/recording/{id}     audio URL for one recording
	GET  /ws                          push channel for newRecording events
	GET  /health                      liveness
	GET  /metrics                     Prometheus exposition (optional)

Guards:

Every route in the table in routes.go declares exactly one Guard. The access
gate (operator session token) and the webhook signature verifier are never
combined on one route: provider callbacks carry no operator token, and
operators cannot produce provider signatures. NewRouter panics on a guard it
does not know, so a route can never be mounted unguarded by accident.

Global middleware, outermost first: request ID, panic recovery, access log,
security headers, HTTPS redirect (production), CORS, per-IP rate limit,
Prometheus instrumentation. The login route carries its own stricter limit.
*/
package api
