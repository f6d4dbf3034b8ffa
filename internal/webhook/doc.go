// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package webhook verifies and normalizes provider recording-status callbacks.

Signature Scheme:

The provider signs each callback with HMAC-SHA1 keyed by the account auth
token. The signed string is the full URL the provider requested followed by
every form field sorted by name, each name immediately followed by its value.
The digest is base64 (standard alphabet) encoded and sent in X-Twilio-Signature.

	data := "https://relay.example.com/webhooks/recording" + "CallSid" + "CA..." + "RecordingSid" + "RE..."
	sig  := base64(HMAC-SHA1(authToken, data))

JSON callbacks instead carry a bodySHA256 query parameter; the URL alone is
signed and the hex SHA-256 of the raw body must equal that parameter.

Verification is byte-exact. The raw body is captured by the Verifier before
anything else reads it, and the URL is reconstructed from the configured
public base URL or, when explicitly trusted, from X-Forwarded-* headers.
Anything that does not verify is rejected and never parsed further.

Normalization:

Only callbacks whose RecordingStatus is "completed" produce a
models.RecordingEvent. A missing or malformed RecordingDuration yields a nil
duration (unknown), distinct from a literal "0".
*/
package webhook
