// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package models

import "time"

// RecordingStatusCompleted is the only provider recording status that is relayed.
const RecordingStatusCompleted = "completed"

// RecordingEvent is a normalized recording-completed notification as it is
// pushed to live operator sessions.
//
// Duration is nil when the provider omitted it or sent something that is not
// a non-negative integer; zero means the provider literally reported "0".
// Timestamp is when this service observed the event, not provider time.
type RecordingEvent struct {
	RecordingSID string    `json:"recordingSid"`
	RecordingURL string    `json:"recordingUrl"`
	CallSID      string    `json:"callSid"`
	AccountSID   string    `json:"accountSid"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Duration     *int      `json:"duration"`
	Timestamp    time.Time `json:"timestamp"`
}

// RecordingReference is one recording as listed by the upstream provider.
type RecordingReference struct {
	SID         string     `json:"sid"`
	AccountSID  string     `json:"accountSid"`
	CallSID     string     `json:"callSid"`
	Status      string     `json:"status"`
	DateCreated *time.Time `json:"dateCreated"`
	DateUpdated *time.Time `json:"dateUpdated"`
	StartTime   *time.Time `json:"startTime"`
	Duration    *int       `json:"duration"`
	Channels    int        `json:"channels"`
	Source      string     `json:"source"`
	ErrorCode   *int       `json:"errorCode"`
	Price       *string    `json:"price"`
	PriceUnit   string     `json:"priceUnit"`
	URI         string     `json:"uri"`
}
