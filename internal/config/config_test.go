// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// testHash has the bcrypt shape; it is never compared against a password here.
const testHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

func validConfig() *Config {
	cfg := defaultConfig()
	cfg.Upstream.AccountSID = "AC" + strings.Repeat("0", 32)
	cfg.Upstream.AuthToken = "auth-token"
	cfg.Security.JWTSecret = "dev-secret"
	cfg.Security.AdminPasswordHash = testHash
	return cfg
}

func setRequiredEnv(t *testing.T) {
	t.Helper()
	// Clear ambient values that would otherwise override the file layer.
	for _, name := range []string{"PORT", "NODE_ENV", "ENVIRONMENT", "LOG_LEVEL", "PUBLIC_BASE_URL"} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("TWILIO_ACCOUNT_SID", "AC"+strings.Repeat("1", 32))
	t.Setenv("TWILIO_AUTH_TOKEN", "provider-token")
	t.Setenv("JWT_SECRET", "session-secret")
	t.Setenv("ADMIN_PASSWORD_HASH", testHash)
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 4000 {
		t.Errorf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Security.AdminUsername != "admin" {
		t.Errorf("Security.AdminUsername = %q, want admin", cfg.Security.AdminUsername)
	}
	if cfg.Security.SessionTimeout != 24*time.Hour {
		t.Errorf("Security.SessionTimeout = %v, want 24h", cfg.Security.SessionTimeout)
	}
	if cfg.Security.RateLimitReqs != 100 || cfg.Security.RateLimitWindow != 15*time.Minute {
		t.Errorf("global rate limit = %d/%v, want 100/15m", cfg.Security.RateLimitReqs, cfg.Security.RateLimitWindow)
	}
	if cfg.Security.LoginRateLimitReqs != 5 || cfg.Security.LoginRateLimitWindow != 15*time.Minute {
		t.Errorf("login rate limit = %d/%v, want 5/15m", cfg.Security.LoginRateLimitReqs, cfg.Security.LoginRateLimitWindow)
	}
	if cfg.Upstream.DefaultListLimit != 50 {
		t.Errorf("Upstream.DefaultListLimit = %d, want 50", cfg.Upstream.DefaultListLimit)
	}
	if cfg.Upstream.BaseURL != "https://api.twilio.com" {
		t.Errorf("Upstream.BaseURL = %q", cfg.Upstream.BaseURL)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"PORT", "server.port"},
		{"NODE_ENV", "server.environment"},
		{"ENVIRONMENT", "server.environment"},
		{"PUBLIC_BASE_URL", "server.public_base_url"},
		{"TWILIO_ACCOUNT_SID", "upstream.account_sid"},
		{"TWILIO_AUTH_TOKEN", "upstream.auth_token"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"ADMIN_USERNAME", "security.admin_username"},
		{"ADMIN_PASSWORD_HASH", "security.admin_password_hash"},
		{"ALLOWED_ORIGINS", "security.cors_origins"},
		{"LOG_LEVEL", "logging.level"},
		{"OTEL_ENABLED", "telemetry.enabled"},

		// Unmapped
		{"PATH", ""},
		{"HOME", ""},
		{"HOST", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := envTransformFunc(tt.input); got != tt.expected {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadWithKoanf_FromEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("NODE_ENV", "test")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SESSION_TIMEOUT", "2h")
	t.Setenv("TRUST_FORWARDED_HEADERS", "true")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Environment != "test" {
		t.Errorf("Server.Environment = %q, want test", cfg.Server.Environment)
	}
	if cfg.Upstream.AuthToken != "provider-token" {
		t.Errorf("Upstream.AuthToken = %q", cfg.Upstream.AuthToken)
	}
	if cfg.Security.SessionTimeout != 2*time.Hour {
		t.Errorf("Security.SessionTimeout = %v, want 2h", cfg.Security.SessionTimeout)
	}
	if !cfg.Security.TrustForwardedHeaders {
		t.Error("Security.TrustForwardedHeaders = false, want true")
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
	if cfg.Security.AdminUsername != "admin" {
		t.Errorf("AdminUsername default lost: %q", cfg.Security.AdminUsername)
	}
}

func TestLoadWithKoanf_FileThenEnvironment(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 5000\n  public_base_url: https://relay.example.com\nlogging:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000 from file", cfg.Server.Port)
	}
	if cfg.Server.PublicBaseURL != "https://relay.example.com" {
		t.Errorf("Server.PublicBaseURL = %q", cfg.Server.PublicBaseURL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want env override warn", cfg.Logging.Level)
	}
}

func TestLoadWithKoanf_MissingRequired(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("TWILIO_ACCOUNT_SID", "")
	t.Setenv("TWILIO_AUTH_TOKEN", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	_, err := LoadWithKoanf()
	if !errors.Is(err, ErrMissingRequired) {
		t.Fatalf("LoadWithKoanf() error = %v, want ErrMissingRequired", err)
	}
	for _, name := range []string{"TWILIO_ACCOUNT_SID", "TWILIO_AUTH_TOKEN", "JWT_SECRET", "ADMIN_PASSWORD_HASH"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not name %s", err, name)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing hash", func(c *Config) { c.Security.AdminPasswordHash = "" }, true},
		{"hash not bcrypt", func(c *Config) { c.Security.AdminPasswordHash = "plaintext" }, true},
		{"empty admin username", func(c *Config) { c.Security.AdminUsername = "" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"bad environment", func(c *Config) { c.Server.Environment = "qa" }, true},
		{"bad public url", func(c *Config) { c.Server.PublicBaseURL = "relay.example.com" }, true},
		{"zero session timeout", func(c *Config) { c.Security.SessionTimeout = 0 }, true},
		{"list limit above provider cap", func(c *Config) { c.Upstream.DefaultListLimit = 1001 }, true},
		{"production short secret", func(c *Config) { c.Server.Environment = "production" }, true},
		{"production wildcard cors", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = strings.Repeat("s", 64)
			c.Security.CORSOrigins = []string{"*"}
		}, true},
		{"production hardened", func(c *Config) {
			c.Server.Environment = "production"
			c.Security.JWTSecret = strings.Repeat("s", 64)
			c.Security.CORSOrigins = []string{"https://ops.example.com"}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv(ConfigPathEnvVar, path)
	if got := findConfigFile(); got != path {
		t.Errorf("findConfigFile() = %q, want %q", got, path)
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 4000}
	if got := s.Addr(); got != "127.0.0.1:4000" {
		t.Errorf("Addr() = %q", got)
	}
}
