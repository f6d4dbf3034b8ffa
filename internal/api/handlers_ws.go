// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/relay"
)

// WebSocket opens a push channel. The relay verifies the handshake token
// before the connection is upgraded; a rejected token gets the gate's
// 401/403 response and no channel is registered.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.getUpgrader()
	upgraded := false

	conn, err := h.channels.Connect(auth.HandshakeToken(r), func(id string, _ *auth.Identity) (relay.Channel, error) {
		upgraded = true
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return nil, err
		}
		client := relay.NewClient(id, ws)
		client.Start()
		return client, nil
	})

	switch {
	case err == nil:
		logging.Ctx(r.Context()).Debug().Str("connection_id", conn.ID).Msg("Push channel opened")
	case upgraded:
		// Upgrade already wrote its own error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
	case errors.Is(err, relay.ErrHubClosed):
		respondError(w, http.StatusServiceUnavailable, "Push channel unavailable", "")
	default:
		h.gate.Reject(w, r, err)
	}
}
