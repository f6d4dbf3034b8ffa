// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

// Package main is the entry point for the CallRelay server.
//
// CallRelay receives recording-status callbacks from the telephony provider,
// verifies their signature, and pushes completed recordings to logged-in
// operators over WebSocket. Operators can also list recent recordings and
// resolve a recording's audio URL through the provider API.
//
// # Startup
//
//  1. Configuration: .env (godotenv), then defaults, config.yaml and
//     environment via Koanf v2. Missing required settings exit non-zero.
//  2. Logging and optional tracing
//  3. Operator auth: JWT manager, credential authority, access gate
//  4. Relay hub for push channels
//  5. Provider gateway behind a rate limiter and circuit breaker
//  6. HTTP server, run under the supervisor tree with the relay hub
//
// # Required Environment
//
//	TWILIO_ACCOUNT_SID   provider account
//	TWILIO_AUTH_TOKEN    provider API token, also the webhook signing key
//	JWT_SECRET           session token signing key (32+ characters)
//	ADMIN_PASSWORD_HASH  bcrypt hash of the operator password (see cmd/hashpw)
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the root context. The HTTP server drains for
// server.shutdown_timeout and the relay hub closes every live channel.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tomtom215/callrelay/internal/api"
	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/relay"
	"github.com/tomtom215/callrelay/internal/supervisor"
	"github.com/tomtom215/callrelay/internal/supervisor/services"
	"github.com/tomtom215/callrelay/internal/telemetry"
	"github.com/tomtom215/callrelay/internal/upstream"
	"github.com/tomtom215/callrelay/internal/webhook"
)

func main() {
	// A missing .env is normal in containers.
	_ = godotenv.Load()

	cfg, err := config.LoadWithKoanf()
	if err != nil {
		// Config not yet available; the default logger still writes JSON to stderr.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Bool("metrics", cfg.Server.MetricsEnabled).
		Bool("tracing", cfg.Telemetry.Enabled).
		Msg("Starting CallRelay")

	shutdownTracer, err := telemetry.InitTracer(cfg.Telemetry, nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize tracing")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logging.Error().Err(err).Msg("Error flushing traces")
		}
	}()

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}
	authority := auth.NewAuthority(cfg.Security.AdminUsername, cfg.Security.AdminPasswordHash, jwtManager)
	gate := auth.NewGate(authority)

	hub := relay.NewHub(authority)

	var clientOpts []upstream.ClientOption
	if cfg.Telemetry.Enabled {
		clientOpts = append(clientOpts, upstream.WithTransport(otelhttp.NewTransport(http.DefaultTransport)))
	}
	gateway := upstream.NewCircuitBreakerGateway(
		upstream.NewGateway(upstream.NewClient(&cfg.Upstream, clientOpts...), &cfg.Upstream),
		&cfg.Upstream,
	)

	verifier := webhook.NewVerifier(webhook.VerifierConfig{
		Secret:         cfg.Upstream.AuthToken,
		PublicBaseURL:  cfg.Server.PublicBaseURL,
		TrustForwarded: cfg.Security.TrustForwardedHeaders,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})
	if cfg.Server.PublicBaseURL == "" {
		logging.Warn().Msg("PUBLIC_BASE_URL not set; webhook signatures are checked against the request Host header")
	}

	handler := api.NewHandler(api.HandlerDeps{
		Config:  cfg,
		Issuer:  authority,
		Gate:    gate,
		Hub:     hub,
		Gateway: gateway,
	})
	router := api.NewRouter(cfg, handler, gate, verifier)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddRelayService(services.NewRelayHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("CallRelay stopped")
}
