// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package relay

// Message types for push channel communication
const (
	MessageTypeNewRecording = "newRecording"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is one push channel frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Channel is one live push connection, independent of its transport.
type Channel interface {
	// Send queues msg without blocking. It returns false when the channel
	// cannot accept it because its queue is full or it is closed.
	Send(msg Message) bool

	// Close shuts the channel down. It is safe to call more than once.
	Close()

	// Done is closed once the underlying connection has gone away.
	Done() <-chan struct{}
}
