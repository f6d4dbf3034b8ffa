// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/middleware"
	"github.com/tomtom215/callrelay/internal/webhook"
)

// Router wires handlers, guards, and middleware into one http.Handler.
type Router struct {
	handler       *Handler
	gate          *auth.Gate
	verifier      *webhook.Verifier
	chiMiddleware *ChiMiddleware
	cfg           *config.Config
}

// NewRouter creates a new router.
func NewRouter(cfg *config.Config, handler *Handler, gate *auth.Gate, verifier *webhook.Verifier) *Router {
	return &Router{
		handler:       handler,
		gate:          gate,
		verifier:      verifier,
		chiMiddleware: NewChiMiddleware(NewChiMiddlewareConfig(cfg)),
		cfg:           cfg,
	}
}

// SetupChi builds the HTTP handler for every route in Routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	if router.cfg.Security.TrustForwardedHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.AccessLog)
	r.Use(middleware.SecurityHeaders)
	if router.cfg.IsProduction() {
		r.Use(middleware.HTTPSRedirect(router.cfg.Server.PublicBaseURL))
	}
	r.Use(router.chiMiddleware.CORS()) // must be global to answer OPTIONS preflight
	r.Use(router.chiMiddleware.RateLimit())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "Not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	for _, route := range router.Routes() {
		router.mountRoute(r, route)
	}

	if !router.cfg.Telemetry.Enabled {
		return r
	}
	return otelhttp.NewHandler(r, router.cfg.Telemetry.ServiceName,
		otelhttp.WithSpanNameFormatter(func(operation string, req *http.Request) string {
			return operation + " " + req.Method
		}),
	)
}
