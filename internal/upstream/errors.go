// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by errors from a provider 404.
	ErrNotFound = errors.New("recording not found")

	// ErrInvalidRecordingID is returned for ids that are not 34 alphanumeric characters.
	ErrInvalidRecordingID = errors.New("invalid recording SID format")

	// ErrCircuitOpen is matched by errors from calls rejected by the circuit breaker.
	ErrCircuitOpen = errors.New("upstream circuit breaker open")
)

// UpstreamError describes a failed provider call.
//
//nolint:revive // UpstreamError reads better at call sites than upstream.Error
type UpstreamError struct {
	// Op is the gateway operation, e.g. "list_recordings".
	Op string
	// StatusCode is the provider HTTP status, or 0 when no response arrived.
	StatusCode int
	// Err is the underlying cause.
	Err error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upstream %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
