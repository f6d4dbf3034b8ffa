// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/callrelay/internal/auth"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func waitForClients(t *testing.T, env *testEnv, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if env.hub.ClientCount() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ClientCount() = %d, want %d", env.hub.ClientCount(), want)
}

func TestWebSocket_Handshake(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)
	token := env.login(t)

	tests := []struct {
		name   string
		url    string
		header http.Header
		protos []string
		want   string
	}{
		{
			name: "query parameter",
			url:  wsURL(srv) + "?token=" + token,
		},
		{
			name:   "authorization header",
			url:    wsURL(srv),
			header: http.Header{"Authorization": {"Bearer " + token}},
		},
		{
			name:   "bearer subprotocol",
			url:    wsURL(srv),
			protos: []string{auth.BearerSubprotocol, token},
			want:   auth.BearerSubprotocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dialer := websocket.Dialer{HandshakeTimeout: 2 * time.Second, Subprotocols: tt.protos}
			conn, resp, err := dialer.Dial(tt.url, tt.header)
			if err != nil {
				status := 0
				if resp != nil {
					status = resp.StatusCode
				}
				t.Fatalf("Dial() error = %v (status %d)", err, status)
			}
			defer conn.Close()

			if got := conn.Subprotocol(); got != tt.want {
				t.Errorf("Subprotocol() = %q, want %q", got, tt.want)
			}
			waitForClients(t, env, 1)

			conn.Close()
			waitForClients(t, env, 0)
		})
	}
}

func TestWebSocket_RejectedHandshake(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)
	token := env.login(t)

	tests := []struct {
		name       string
		query      string
		advance    time.Duration
		wantStatus int
	}{
		{"no token", "", 0, http.StatusUnauthorized},
		{"forged token", "?token=forged", 0, http.StatusForbidden},
		{"expired token", "?token=" + token, 25 * time.Hour, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.clock.Advance(tt.advance)

			conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv)+tt.query, nil)
			if err == nil {
				conn.Close()
				t.Fatal("Dial() succeeded, want handshake rejection")
			}
			if resp == nil || resp.StatusCode != tt.wantStatus {
				t.Fatalf("response = %+v, want status %d", resp, tt.wantStatus)
			}
			if got := env.hub.ClientCount(); got != 0 {
				t.Errorf("ClientCount() = %d, want 0", got)
			}
		})
	}
}

func TestWebSocket_ReceivesRelayedRecording(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+env.login(t), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()
	waitForClients(t, env, 1)

	if rec := env.deliver(recordingForm("completed", "45"), true); rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d", rec.Code)
	}

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}

	var msg struct {
		Type string `json:"type"`
		Data struct {
			RecordingSID string `json:"recordingSid"`
			Duration     *int   `json:"duration"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("message is not JSON: %v (%s)", err, data)
	}
	if msg.Type != "newRecording" {
		t.Errorf("type = %q", msg.Type)
	}
	if msg.Data.RecordingSID != "RE0123456789abcdef0123456789abcdef" {
		t.Errorf("recordingSid = %q", msg.Data.RecordingSID)
	}
	if msg.Data.Duration == nil || *msg.Data.Duration != 45 {
		t.Errorf("duration = %v, want 45", msg.Data.Duration)
	}
}

func TestCheckWebSocketOrigin(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		origins []string
		origin  string
		want    bool
	}{
		{"no origin header", "production", nil, "", true},
		{"same host", "production", nil, "https://relay.example.com", true},
		{"listed origin", "production", []string{"https://console.example.com"}, "https://console.example.com", true},
		{"unlisted origin", "production", []string{"https://console.example.com"}, "https://evil.example.com", false},
		{"production without list", "production", nil, "https://evil.example.com", false},
		{"development without list", "development", nil, "http://localhost:5173", true},
		{"wildcard", "production", []string{"*"}, "https://anything.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.Server.Environment = tt.env
			cfg.Security.CORSOrigins = tt.origins
			h := NewHandler(HandlerDeps{Config: cfg})

			req := httptest.NewRequest(http.MethodGet, "http://relay.example.com/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := h.checkWebSocketOrigin(req); got != tt.want {
				t.Errorf("checkWebSocketOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}
