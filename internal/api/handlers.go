// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/models"
	"github.com/tomtom215/callrelay/internal/relay"
	"github.com/tomtom215/callrelay/internal/upstream"
)

// TokenIssuer issues session tokens for valid operator credentials.
// *auth.Authority implements it.
type TokenIssuer interface {
	IssueToken(username, password string) (string, time.Time, error)
}

// Broadcaster relays normalized recording events to live channels.
// *relay.Hub implements it.
type Broadcaster interface {
	Broadcast(event *models.RecordingEvent) int
}

// Connector registers authenticated push channels. *relay.Hub implements it.
type Connector interface {
	Connect(token string, open relay.Opener) (*relay.Connection, error)
}

// Handler holds the dependencies of every HTTP handler.
type Handler struct {
	config   *config.Config
	issuer   TokenIssuer
	gate     *auth.Gate
	relay    Broadcaster
	channels Connector
	records  upstream.RecordGateway
	security *logging.SecurityLogger
	now      func() time.Time
}

// HandlerDeps lists the collaborators NewHandler wires together.
type HandlerDeps struct {
	Config   *config.Config
	Issuer   TokenIssuer
	Gate     *auth.Gate
	Hub      *relay.Hub
	Gateway  upstream.RecordGateway
	Clock    func() time.Time
	Security *logging.SecurityLogger
}

// NewHandler creates a new API handler.
func NewHandler(deps HandlerDeps) *Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	security := deps.Security
	if security == nil {
		security = logging.NewSecurityLogger()
	}
	return &Handler{
		config:   deps.Config,
		issuer:   deps.Issuer,
		gate:     deps.Gate,
		relay:    deps.Hub,
		channels: deps.Hub,
		records:  deps.Gateway,
		security: security,
		now:      clock,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking, a handshake
// timeout, and the bearer subprotocol so that browsers passing their token
// as "Sec-WebSocket-Protocol: bearer, <token>" complete the handshake.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		Subprotocols:     []string{auth.BearerSubprotocol},
		CheckOrigin:      h.checkWebSocketOrigin,
	}
}

// checkWebSocketOrigin validates push-channel origins. Requests without an
// Origin header come from non-browser clients and rely on the token alone.
// Browser origins must be same-origin or in the CORS allow-list; development
// deployments without an allow-list accept any origin.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}

	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}

	allowed := h.config.Security.CORSOrigins
	if len(allowed) == 0 && h.config.IsDevelopment() {
		return true
	}
	for _, allowedOrigin := range allowed {
		if allowedOrigin == "*" || strings.EqualFold(allowedOrigin, origin) {
			return true
		}
	}

	logging.Warn().Str("origin", logging.SanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
