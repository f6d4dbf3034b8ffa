// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
)

// ChiMiddlewareConfig holds configuration for Chi middleware factories.
type ChiMiddlewareConfig struct {
	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty means same-origin only, unless CORSAllowAll is set.
	CORSAllowedOrigins []string
	CORSAllowAll       bool
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	CORSMaxAge         int // seconds

	RateLimitRequests      int
	RateLimitWindow        time.Duration
	LoginRateLimitRequests int
	LoginRateLimitWindow   time.Duration
	RateLimitDisabled      bool

	// RateLimitByRealIP keys limits on X-Forwarded-For / X-Real-IP. Only
	// safe behind a proxy that overwrites those headers.
	RateLimitByRealIP bool
}

// NewChiMiddlewareConfig derives middleware settings from the service config.
// Development deployments with no configured origins accept any origin.
func NewChiMiddlewareConfig(cfg *config.Config) *ChiMiddlewareConfig {
	return &ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSAllowAll:       cfg.IsDevelopment() && len(cfg.Security.CORSOrigins) == 0,
		CORSAllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSMaxAge:         86400,

		RateLimitRequests:      cfg.Security.RateLimitReqs,
		RateLimitWindow:        cfg.Security.RateLimitWindow,
		LoginRateLimitRequests: cfg.Security.LoginRateLimitReqs,
		LoginRateLimitWindow:   cfg.Security.LoginRateLimitWindow,
		RateLimitDisabled:      cfg.Security.RateLimitDisabled,
		RateLimitByRealIP:      cfg.Security.TrustForwardedHeaders,
	}
}

// ChiMiddleware provides Chi-compatible middleware factories.
type ChiMiddleware struct {
	config *ChiMiddlewareConfig
	cors   func(http.Handler) http.Handler
}

// NewChiMiddleware creates a new Chi middleware factory with the given configuration.
func NewChiMiddleware(cfg *ChiMiddlewareConfig) *ChiMiddleware {
	opts := cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: cfg.CORSAllowedMethods,
		AllowedHeaders: cfg.CORSAllowedHeaders,
		MaxAge:         cfg.CORSMaxAge,
	}
	switch {
	case cfg.CORSAllowAll:
		opts.AllowedOrigins = []string{"*"}
	case len(cfg.CORSAllowedOrigins) == 0:
		// go-chi/cors treats an empty list as "*".
		opts.AllowOriginFunc = func(*http.Request, string) bool { return false }
	}

	return &ChiMiddleware{
		config: cfg,
		cors:   cors.Handler(opts),
	}
}

// CORS returns the go-chi/cors middleware.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns the global per-client limiter.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(m.config.RateLimitRequests, m.config.RateLimitWindow, "global",
		"Too many requests, please try again later")
}

// RateLimitLogin returns the strict limiter for the login endpoint.
func (m *ChiMiddleware) RateLimitLogin() func(http.Handler) http.Handler {
	return m.limit(m.config.LoginRateLimitRequests, m.config.LoginRateLimitWindow, "login",
		"Too many login attempts, please try again later")
}

func (m *ChiMiddleware) limit(requests int, window time.Duration, name, message string) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	keyFunc := httprate.KeyByIP
	if m.config.RateLimitByRealIP {
		keyFunc = httprate.KeyByRealIP
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.RecordRateLimitHit(name)
			respondJSON(w, http.StatusTooManyRequests, models.ErrorResponse{Error: message})
		}),
	)
}
