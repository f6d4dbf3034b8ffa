// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/callrelay/config.yaml",
	"/etc/callrelay/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            4000,
			Host:            "0.0.0.0",
			Environment:     "development",
			PublicBaseURL:   "",
			MetricsEnabled:  true,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxBodyBytes:    1 << 20, // 1MB
		},
		Upstream: UpstreamConfig{
			AccountSID:         "",
			AuthToken:          "",
			BaseURL:            "https://api.twilio.com",
			MediaBaseURL:       "https://api.twilio.com",
			Timeout:            10 * time.Second,
			RequestsPerSecond:  10,
			Burst:              5,
			BreakerMaxFailures: 5,
			BreakerInterval:    time.Minute,
			BreakerTimeout:     30 * time.Second,
			DefaultListLimit:   50,
		},
		Security: SecurityConfig{
			JWTSecret:             "",
			SessionTimeout:        24 * time.Hour,
			AdminUsername:         "admin",
			AdminPasswordHash:     "",
			CORSOrigins:           []string{},
			TrustForwardedHeaders: false,
			RateLimitReqs:         100,
			RateLimitWindow:       15 * time.Minute,
			LoginRateLimitReqs:    5,
			LoginRateLimitWindow:  15 * time.Minute,
			RateLimitDisabled:     false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			ServiceName: "callrelay",
			SampleRatio: 1.0,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: Built-in defaults
//  2. Config File: Optional YAML config file (if exists)
//  3. Environment Variables: Override any setting
//
// The returned configuration has been validated.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: Load defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: Load config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: Load environment variables (highest priority)
	// TWILIO_AUTH_TOKEN -> upstream.auth_token
	// JWT_SECRET -> security.jwt_secret
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths.
// Returns the path to the first file found, or empty string if none found.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths defines which config paths should be parsed as comma-separated slices
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known slice fields.
// Env vars arrive as strings, but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf config paths.
// The legacy names (PORT, NODE_ENV, TWILIO_*, ALLOWED_ORIGINS) are kept so an
// existing deployment's .env keeps working.
var envMappings = map[string]string{
	// Server
	"port":                    "server.port",
	"server_host":             "server.host",
	"node_env":                "server.environment",
	"environment":             "server.environment",
	"public_base_url":         "server.public_base_url",
	"metrics_enabled":         "server.metrics_enabled",
	"server_read_timeout":     "server.read_timeout",
	"server_write_timeout":    "server.write_timeout",
	"server_idle_timeout":     "server.idle_timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",
	"max_body_bytes":          "server.max_body_bytes",

	// Upstream provider
	"twilio_account_sid":            "upstream.account_sid",
	"twilio_auth_token":             "upstream.auth_token",
	"upstream_base_url":             "upstream.base_url",
	"upstream_media_base_url":       "upstream.media_base_url",
	"upstream_timeout":              "upstream.timeout",
	"upstream_requests_per_second":  "upstream.requests_per_second",
	"upstream_burst":                "upstream.burst",
	"upstream_breaker_max_failures": "upstream.breaker_max_failures",
	"upstream_breaker_interval":     "upstream.breaker_interval",
	"upstream_breaker_timeout":      "upstream.breaker_timeout",
	"upstream_default_list_limit":   "upstream.default_list_limit",

	// Security
	"jwt_secret":              "security.jwt_secret",
	"session_timeout":         "security.session_timeout",
	"admin_username":          "security.admin_username",
	"admin_password_hash":     "security.admin_password_hash",
	"allowed_origins":         "security.cors_origins",
	"cors_origins":            "security.cors_origins",
	"trust_forwarded_headers": "security.trust_forwarded_headers",
	"rate_limit_requests":     "security.rate_limit_reqs",
	"rate_limit_window":       "security.rate_limit_window",
	"login_rate_limit_reqs":   "security.login_rate_limit_reqs",
	"login_rate_limit_window": "security.login_rate_limit_window",
	"disable_rate_limit":      "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Telemetry
	"otel_enabled":      "telemetry.enabled",
	"otel_service_name": "telemetry.service_name",
	"otel_sample_ratio": "telemetry.sample_ratio",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - TWILIO_ACCOUNT_SID -> upstream.account_sid
//   - NODE_ENV -> server.environment
//   - ALLOWED_ORIGINS -> security.cors_origins
//
// Unmapped variables return "" and are skipped so unrelated environment
// variables never leak into configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
