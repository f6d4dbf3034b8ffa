// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package models defines the data structures shared across CallRelay.

Key Components:

  - RecordingEvent: normalized recording-completed notification relayed to operators
  - RecordingReference: one recording as listed by the upstream provider
  - LoginRequest / LoginResponse: operator authentication bodies
  - ErrorResponse: the JSON error shape used by every handler

None of these are persisted. Events exist only for the duration of one
broadcast and references only for the duration of one request.
*/
package models
