// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
	"github.com/tomtom215/callrelay/internal/upstream"
	"github.com/tomtom215/callrelay/internal/validation"
	"github.com/tomtom215/callrelay/internal/webhook"
)

// RecordingWebhook accepts a verified recording-status callback. Completed
// recordings are broadcast to live channels; every other status is
// acknowledged and dropped. The provider always gets 200 "OK" once the
// signature has been verified.
func (h *Handler) RecordingWebhook(w http.ResponseWriter, r *http.Request) {
	delivery, ok := webhook.DeliveryFromContext(r.Context())
	if !ok {
		logging.Ctx(r.Context()).Error().Msg("Webhook handler reached without a verified delivery")
		respondText(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	form := delivery.Form
	logging.Ctx(r.Context()).Info().
		Str("recording_sid", logging.SanitizeLogValue(form.Get(webhook.FieldRecordingSID))).
		Str("recording_status", logging.SanitizeLogValue(form.Get(webhook.FieldRecordingStatus))).
		Str("call_sid", logging.SanitizeLogValue(form.Get(webhook.FieldCallSID))).
		Str("from", logging.SanitizePhone(form.Get(webhook.FieldFrom))).
		Str("to", logging.SanitizePhone(form.Get(webhook.FieldTo))).
		Str("duration", logging.SanitizeLogValue(form.Get(webhook.FieldRecordingDuration))).
		Msg("Recording webhook received")

	event, relayable := webhook.Normalize(form, h.now())
	if !relayable {
		metrics.RecordWebhookDelivery("ignored")
		respondText(w, http.StatusOK, "OK")
		return
	}

	delivered := h.relay.Broadcast(event)
	metrics.RecordWebhookDelivery("relayed")
	logging.Ctx(r.Context()).Info().
		Str("recording_sid", logging.SanitizeLogValue(event.RecordingSID)).
		Int("clients", delivered).
		Msg("Recording notification sent to clients")

	respondText(w, http.StatusOK, "OK")
}

// ListRecordings returns recent recordings from the provider.
//
//	GET /webhooks/recordings?limit=50   (1..1000, default 50)
func (h *Handler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	limit, ok := getIntParam(r, "limit", h.config.Upstream.DefaultListLimit)
	if !ok || limit < 1 || limit > upstream.MaxListLimit {
		respondError(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 1000")
		return
	}

	refs, err := h.records.ListRecent(r.Context(), limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Error fetching recordings")
		respondError(w, upstreamStatus(err), "Failed to fetch recordings", err.Error())
		return
	}
	if refs == nil {
		refs = []models.RecordingReference{}
	}
	respondJSON(w, http.StatusOK, refs)
}

// recordingIDParam is the {id} path parameter of the access URL route.
type recordingIDParam struct {
	ID string `json:"id" validate:"recording_sid"`
}

// RecordingAccessURL resolves the audio URL of one recording. The URL is
// recomputed on every call. Malformed ids are rejected before the provider
// is contacted.
func (h *Handler) RecordingAccessURL(w http.ResponseWriter, r *http.Request) {
	param := recordingIDParam{ID: chi.URLParam(r, "id")}
	if verr := validation.ValidateStruct(&param); verr != nil {
		apiErr := verr.ToAPIError()
		logging.Ctx(r.Context()).Debug().
			Str("code", apiErr.Code).
			Strs("fields", apiErr.Fields).
			Msg("Rejected recording id")
		respondError(w, http.StatusBadRequest, "Invalid recording SID format", apiErr.Message)
		return
	}

	accessURL, err := h.records.ResolveAccessURL(r.Context(), param.ID)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, models.AccessURLResponse{URL: accessURL})
	case errors.Is(err, upstream.ErrInvalidRecordingID):
		respondError(w, http.StatusBadRequest, "Invalid recording SID format", "")
	case errors.Is(err, upstream.ErrNotFound):
		respondError(w, http.StatusNotFound, "Recording not found", "")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Error fetching recording URL")
		respondError(w, upstreamStatus(err), "Failed to fetch recording URL", err.Error())
	}
}

// upstreamStatus maps a gateway failure to 502, or 503 while the circuit is open.
func upstreamStatus(err error) int {
	if errors.Is(err, upstream.ErrCircuitOpen) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}
