// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package webhook

import "errors"

var (
	// ErrSecretNotConfigured means no signing secret is configured; the
	// delivery cannot be verified and is refused with a server error.
	ErrSecretNotConfigured = errors.New("webhook signing secret not configured")

	// ErrMissingSignature means the request carried no signature header.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrInvalidSignature means the signature did not match the request.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrBodyTooLarge means the raw body exceeded the configured limit.
	ErrBodyTooLarge = errors.New("webhook body too large")
)
