// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/callrelay/internal/validation"
)

// ErrMissingRequired is returned when a required secret or identifier is absent.
var ErrMissingRequired = errors.New("missing required configuration")

// minProductionSecretLength is the minimum JWT signing secret length in production.
const minProductionSecretLength = 32

// requiredSetting pairs a required value with the environment variable that supplies it.
type requiredSetting struct {
	envVar string
	value  string
}

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateRequired(); err != nil {
		return err
	}

	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("invalid configuration: %w", verr)
	}

	if err := c.validateTimeouts(); err != nil {
		return err
	}

	return c.validateSecurity()
}

// validateRequired reports every missing required setting at once, by the
// environment variable name an operator would set.
func (c *Config) validateRequired() error {
	required := []requiredSetting{
		{"TWILIO_ACCOUNT_SID", c.Upstream.AccountSID},
		{"TWILIO_AUTH_TOKEN", c.Upstream.AuthToken},
		{"JWT_SECRET", c.Security.JWTSecret},
		{"ADMIN_PASSWORD_HASH", c.Security.AdminPasswordHash},
	}

	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.envVar)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(missing, ", "))
	}
	return nil
}

// validateTimeouts rejects non-positive durations.
func (c *Config) validateTimeouts() error {
	durations := map[string]time.Duration{
		"server.read_timeout":              c.Server.ReadTimeout,
		"server.write_timeout":             c.Server.WriteTimeout,
		"server.idle_timeout":              c.Server.IdleTimeout,
		"server.shutdown_timeout":          c.Server.ShutdownTimeout,
		"upstream.timeout":                 c.Upstream.Timeout,
		"upstream.breaker_interval":        c.Upstream.BreakerInterval,
		"upstream.breaker_timeout":         c.Upstream.BreakerTimeout,
		"security.session_timeout":         c.Security.SessionTimeout,
		"security.rate_limit_window":       c.Security.RateLimitWindow,
		"security.login_rate_limit_window": c.Security.LoginRateLimitWindow,
	}

	for name, d := range durations {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %v", name, d)
		}
	}
	return nil
}

// validateSecurity applies production-only hardening rules.
func (c *Config) validateSecurity() error {
	if !c.IsProduction() {
		return nil
	}

	if len(c.Security.JWTSecret) < minProductionSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minProductionSecretLength)
	}

	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return errors.New("wildcard CORS origin is not allowed in production")
		}
	}
	return nil
}
