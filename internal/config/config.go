// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

// Package config loads CallRelay configuration with Koanf v2.
//
// Configuration Loading Order:
//  1. Defaults: Built-in defaults for every optional setting
//  2. Config File: Optional YAML file (CONFIG_PATH, config.yaml, /etc/callrelay/config.yaml)
//  3. Environment Variables: Override any setting
//
// The process refuses to start unless the provider account id, the provider
// auth token (which is also the webhook signing secret), the session signing
// secret, and the operator password hash are all present.
//
//	cfg, err := config.LoadWithKoanf()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Upstream  UpstreamConfig  `koanf:"upstream"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port        int    `koanf:"port" validate:"min=1,max=65535"`
	Host        string `koanf:"host"`
	Environment string `koanf:"environment" validate:"oneof=development test staging production"`

	// PublicBaseURL is the externally visible scheme+host the provider signs
	// webhook URLs against (e.g. https://relay.example.com). When set it is
	// authoritative for signature URL reconstruction.
	PublicBaseURL string `koanf:"public_base_url" validate:"omitempty,http_url"`

	MetricsEnabled  bool          `koanf:"metrics_enabled"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// MaxBodyBytes caps webhook and login request bodies.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1024"`
}

// UpstreamConfig holds telephony provider credentials and client tuning.
type UpstreamConfig struct {
	AccountSID string `koanf:"account_sid"`
	AuthToken  string `koanf:"auth_token"`

	BaseURL      string `koanf:"base_url" validate:"required,http_url"`
	MediaBaseURL string `koanf:"media_base_url" validate:"required,http_url"`

	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int           `koanf:"burst" validate:"min=1"`

	// Circuit breaker
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures" validate:"min=1"`
	BreakerInterval    time.Duration `koanf:"breaker_interval"`
	BreakerTimeout     time.Duration `koanf:"breaker_timeout"`

	DefaultListLimit int `koanf:"default_list_limit" validate:"min=1,max=1000"`
}

// SecurityConfig holds operator authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	SessionTimeout    time.Duration `koanf:"session_timeout"`
	AdminUsername     string        `koanf:"admin_username" validate:"required"`
	AdminPasswordHash string        `koanf:"admin_password_hash" validate:"omitempty,bcrypt_hash"`

	CORSOrigins           []string `koanf:"cors_origins"`
	TrustForwardedHeaders bool     `koanf:"trust_forwarded_headers"`

	RateLimitReqs        int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow      time.Duration `koanf:"rate_limit_window"`
	LoginRateLimitReqs   int           `koanf:"login_rate_limit_reqs" validate:"min=1"`
	LoginRateLimitWindow time.Duration `koanf:"login_rate_limit_window"`
	RateLimitDisabled    bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// TelemetryConfig controls optional OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	ServiceName string  `koanf:"service_name"`
	SampleRatio float64 `koanf:"sample_ratio" validate:"gte=0,lte=1"`
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}
