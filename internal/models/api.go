// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package models

import "time"

// LoginRequest is the operator login body.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries a freshly issued session token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AccessURLResponse carries a recording media URL. It is recomputed on every
// request and must not be cached by clients.
type AccessURLResponse struct {
	URL string `json:"url"`
}

// HealthResponse is returned by the unauthenticated health check.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorResponse is the body of every JSON error. Error is a generic,
// operator-facing message; Reason carries the underlying cause when one is
// safe to show.
//
//	{"error": "Failed to fetch recordings", "reason": "upstream list recordings: status 503"}
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}
