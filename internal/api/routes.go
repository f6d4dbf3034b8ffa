// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/callrelay/internal/middleware"
)

// Guard names the single authorization check in front of a route.
type Guard int

const (
	// GuardNone marks public routes (login, health, metrics).
	GuardNone Guard = iota
	// GuardAccessGate requires an operator session token.
	GuardAccessGate
	// GuardWebhookSignature requires a valid provider signature.
	GuardWebhookSignature
)

// String returns the guard name used in logs and tests.
func (g Guard) String() string {
	switch g {
	case GuardNone:
		return "none"
	case GuardAccessGate:
		return "access_gate"
	case GuardWebhookSignature:
		return "webhook_signature"
	default:
		return fmt.Sprintf("Guard(%d)", int(g))
	}
}

// Route is one entry of the route table.
type Route struct {
	Method  string
	Pattern string
	Guard   Guard
	Handler http.HandlerFunc

	// Middleware runs inside the guard, closest to the handler.
	Middleware []func(http.Handler) http.Handler

	// Handshake makes GuardAccessGate read the token with auth.HandshakeToken
	// instead of the Authorization header only.
	Handshake bool
}

// Routes returns the route table. Every route the service exposes is listed
// here and nowhere else.
func (router *Router) Routes() []Route {
	h := router.handler
	routes := []Route{
		{
			Method:     http.MethodPost,
			Pattern:    "/auth/login",
			Guard:      GuardNone,
			Handler:    h.Login,
			Middleware: []func(http.Handler) http.Handler{router.chiMiddleware.RateLimitLogin()},
		},
		{
			Method:  http.MethodPost,
			Pattern: "/webhooks/recording",
			Guard:   GuardWebhookSignature,
			Handler: h.RecordingWebhook,
		},
		{
			Method:     http.MethodGet,
			Pattern:    "/webhooks/recordings",
			Guard:      GuardAccessGate,
			Handler:    h.ListRecordings,
			Middleware: []func(http.Handler) http.Handler{middleware.Compression},
		},
		{
			Method:  http.MethodGet,
			Pattern: "/webhooks/recording/{id}",
			Guard:   GuardAccessGate,
			Handler: h.RecordingAccessURL,
		},
		{
			Method:    http.MethodGet,
			Pattern:   "/ws",
			Guard:     GuardAccessGate,
			Handler:   h.WebSocket,
			Handshake: true,
		},
		{
			Method:  http.MethodGet,
			Pattern: "/health",
			Guard:   GuardNone,
			Handler: h.Health,
		},
	}

	if router.cfg.Server.MetricsEnabled {
		routes = append(routes, Route{
			Method:  http.MethodGet,
			Pattern: "/metrics",
			Guard:   GuardNone,
			Handler: promhttp.Handler().ServeHTTP,
		})
	}
	return routes
}

// mountRoute registers one route behind its guard. It panics on a guard it
// does not recognize so that a misdeclared route fails at startup instead of
// being served unprotected.
func (router *Router) mountRoute(r chi.Router, route Route) {
	var handler http.Handler = route.Handler
	for i := len(route.Middleware) - 1; i >= 0; i-- {
		handler = route.Middleware[i](handler)
	}

	switch route.Guard {
	case GuardNone:
	case GuardAccessGate:
		if route.Handshake {
			handler = router.gate.HandshakeMiddleware(handler)
		} else {
			handler = router.gate.Middleware(handler)
		}
	case GuardWebhookSignature:
		handler = router.verifier.Middleware(handler)
	default:
		panic(fmt.Sprintf("api: route %s %s declares unknown guard %s", route.Method, route.Pattern, route.Guard))
	}

	r.Method(route.Method, route.Pattern, handler)
}
