// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package upstream queries the telephony provider's REST API for recording
metadata on behalf of authenticated operators.

Components:

  - Client: HTTP transport with account basic auth, outbound pacing
    (golang.org/x/time/rate) and bounded error-body reads
  - Gateway: ListRecent and ResolveAccessURL over the provider's
    2010-04-01 Recordings resource
  - CircuitBreakerGateway: Gateway wrapped in sony/gobreaker so that a
    provider outage fails fast instead of tying up request goroutines

Error Model:

Every failure is returned as *UpstreamError carrying the operation name and
the provider status code when one was received. A provider 404 additionally
matches ErrNotFound. Identifiers are validated locally before any network
call, so ErrInvalidRecordingID never reaches the provider.

Requests are never retried here. Callers decide whether to try again.
*/
package upstream
