// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package logging

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant event for audit logging.
type SecurityEvent struct {
	// Event is the type of event (login_success, login_failed, token_rejected, ...).
	Event string
	// Username is the operator identity (if known).
	Username string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Path is the request path the event was raised on.
	Path string
	// Token is the credential that was presented, logged masked.
	Token string
	// Success indicates if the operation was successful.
	Success bool
	// Reason is the failure reason if the operation failed.
	Reason string
}

// SecurityLogger writes operator-auth and webhook-trust events with
// sensitive values masked.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a new security logger on the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom zerolog logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs a security event. Failures are logged at warn level.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info()
	} else {
		e = l.logger.Warn()
	}

	e = e.Str("event", event.Event)
	if event.Success {
		e = e.Str("status", "success")
	} else {
		e = e.Str("status", "failed")
	}

	if event.Username != "" {
		e = e.Str("username", SanitizeUsername(event.Username))
	}
	if event.IPAddress != "" {
		e = e.Str("ip", SanitizeLogValue(event.IPAddress))
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(SanitizeLogValue(event.UserAgent), 100))
	}
	if event.Path != "" {
		e = e.Str("path", SanitizeLogValue(event.Path))
	}
	if event.Token != "" {
		e = e.Str("token", SanitizeToken(SanitizeLogValue(event.Token)))
	}
	if event.Reason != "" && !event.Success {
		e = e.Str("reason", truncateString(SanitizeLogValue(event.Reason), 200))
	}

	e.Msg("")
}

// LogLoginSuccess logs a successful operator login.
func (l *SecurityLogger) LogLoginSuccess(username, ip, userAgent string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_success",
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Success:   true,
	})
}

// LogLoginFailure logs a failed operator login.
func (l *SecurityLogger) LogLoginFailure(username, ip, userAgent, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "login_failed",
		Username:  username,
		IPAddress: ip,
		UserAgent: userAgent,
		Reason:    reason,
	})
}

// LogTokenRejected logs a bearer token that failed verification. Only the
// first and last four characters of token are written.
func (l *SecurityLogger) LogTokenRejected(ip, path, token, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "token_rejected",
		IPAddress: ip,
		Path:      path,
		Token:     token,
		Reason:    reason,
	})
}

// LogSignatureFailure logs a webhook delivery whose provider signature did not verify.
func (l *SecurityLogger) LogSignatureFailure(ip, path, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "webhook_signature_failed",
		IPAddress: ip,
		Path:      path,
		Reason:    reason,
	})
}

// SanitizeToken masks a token, showing only first and last 4 characters.
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeUsername masks a username, keeping first 2 characters.
func SanitizeUsername(username string) string {
	if username == "" {
		return ""
	}
	if len(username) <= 2 {
		return "***"
	}
	return username[:2] + "***"
}

// SanitizeLogValue replaces control characters so that provider- or
// client-supplied values cannot forge log lines.
func SanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SanitizePhone strips the leading '+' from E.164 numbers before logging.
func SanitizePhone(number string) string {
	return SanitizeLogValue(strings.TrimPrefix(number, "+"))
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
