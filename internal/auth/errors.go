// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package auth

import "errors"

var (
	// ErrInvalidCredentials is returned when the username or password does not match.
	// Callers must not reveal which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotConfigured is returned when no operator password hash is configured.
	ErrNotConfigured = errors.New("operator credentials not configured")

	// ErrInvalidOrExpired is returned for any token that fails verification.
	ErrInvalidOrExpired = errors.New("invalid or expired token")

	// ErrTokenExpired is wrapped together with ErrInvalidOrExpired when the
	// only problem with a token is that its expiry has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrMissingToken is returned when a request carries no bearer token.
	ErrMissingToken = errors.New("access token required")
)
