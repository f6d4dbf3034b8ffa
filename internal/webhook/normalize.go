// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package webhook

import (
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/callrelay/internal/models"
)

// Provider form field names.
const (
	FieldRecordingSID      = "RecordingSid"
	FieldRecordingURL      = "RecordingUrl"
	FieldRecordingStatus   = "RecordingStatus"
	FieldRecordingDuration = "RecordingDuration"
	FieldCallSID           = "CallSid"
	FieldAccountSID        = "AccountSid"
	FieldFrom              = "From"
	FieldTo                = "To"
)

// Normalize converts a verified callback into a RecordingEvent stamped with
// now. It returns false for every status other than "completed".
func Normalize(form url.Values, now time.Time) (*models.RecordingEvent, bool) {
	if form.Get(FieldRecordingStatus) != models.RecordingStatusCompleted {
		return nil, false
	}

	return &models.RecordingEvent{
		RecordingSID: form.Get(FieldRecordingSID),
		RecordingURL: form.Get(FieldRecordingURL),
		CallSID:      form.Get(FieldCallSID),
		AccountSID:   form.Get(FieldAccountSID),
		From:         form.Get(FieldFrom),
		To:           form.Get(FieldTo),
		Duration:     parseDuration(form[FieldRecordingDuration]),
		Timestamp:    now.UTC(),
	}, true
}

// parseDuration accepts exactly one field value made of ASCII digits with
// no leading zero, so only a literal "0" means zero. Anything else,
// including an absent field, is unknown (nil).
func parseDuration(values []string) *int {
	if len(values) != 1 {
		return nil
	}
	raw := values[0]
	if raw == "" || (len(raw) > 1 && raw[0] == '0') {
		return nil
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return nil
		}
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil
	}
	return &n
}
