// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package relay

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// ErrHubClosed is returned by Connect after the hub has shut down.
var ErrHubClosed = errors.New("relay hub is closed")

// TokenVerifier verifies the session token presented at handshake.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Identity, error)
}

// Opener upgrades the transport once the token has been verified. It is
// given the connection id and identity the channel will be registered under.
type Opener func(id string, identity *auth.Identity) (Channel, error)

// Connection describes one registered channel.
type Connection struct {
	ID          string
	Identity    *auth.Identity
	ConnectedAt time.Time
	Channel     Channel

	seq uint64
}

// Hub maintains the set of live channels and broadcasts messages to them.
type Hub struct {
	verifier TokenVerifier

	mu       sync.RWMutex
	channels map[string]*Connection
	nextSeq  uint64
	closed   bool
}

// NewHub creates a Hub that authenticates channels with verifier.
func NewHub(verifier TokenVerifier) *Hub {
	return &Hub{
		verifier: verifier,
		channels: make(map[string]*Connection),
	}
}

// Connect authenticates token and, only on success, calls open and registers
// the resulting channel under a fresh connection id. On any error no channel
// is registered. The channel is removed automatically when its Done channel
// closes.
func (h *Hub) Connect(token string, open Opener) (*Connection, error) {
	identity, err := h.verifier.VerifyToken(token)
	if err != nil {
		return nil, err
	}

	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		return nil, ErrHubClosed
	}

	id := uuid.NewString()
	ch, err := open(id, identity)
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	conn := &Connection{
		ID:          id,
		Identity:    identity,
		ConnectedAt: time.Now(),
		Channel:     ch,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		ch.Close()
		return nil, ErrHubClosed
	}
	h.nextSeq++
	conn.seq = h.nextSeq
	h.channels[id] = conn
	total := len(h.channels)
	// Set under the lock so the gauge follows the order of membership changes.
	metrics.WSConnections.Set(float64(total))
	h.mu.Unlock()

	logging.Info().
		Str("connection_id", id).
		Str("username", logging.SanitizeUsername(identity.Username)).
		Int("total_clients", total).
		Msg("Authenticated client connected")

	go func() {
		<-ch.Done()
		h.Disconnect(id)
	}()

	return conn, nil
}

// Disconnect removes and closes the channel registered under id. Unknown or
// already removed ids are ignored.
func (h *Hub) Disconnect(id string) {
	h.mu.Lock()
	conn, ok := h.channels[id]
	if ok {
		delete(h.channels, id)
	}
	total := len(h.channels)
	if ok {
		metrics.WSConnections.Set(float64(total))
	}
	h.mu.Unlock()

	if !ok {
		return
	}

	conn.Channel.Close()
	logging.Info().
		Str("connection_id", id).
		Int("total_clients", total).
		Msg("Client disconnected")
}

// Broadcast sends a newRecording message carrying event to every channel
// registered when the call starts. It returns the number of channels that
// accepted the message.
func (h *Hub) Broadcast(event *models.RecordingEvent) int {
	return h.BroadcastMessage(Message{Type: MessageTypeNewRecording, Data: event})
}

// BroadcastMessage sends msg to a snapshot of the registered channels.
// Channels that cannot accept it are disconnected.
func (h *Hub) BroadcastMessage(msg Message) int {
	snapshot := h.snapshot()

	delivered := 0
	var dropped []string
	for _, conn := range snapshot {
		if conn.Channel.Send(msg) {
			delivered++
			continue
		}
		dropped = append(dropped, conn.ID)
	}

	for _, id := range dropped {
		logging.Warn().Str("connection_id", id).Msg("Dropping channel that could not accept broadcast")
		h.Disconnect(id)
	}

	metrics.RecordBroadcast(delivered, len(dropped))
	return delivered
}

// snapshot copies the registry in connection order.
func (h *Hub) snapshot() []*Connection {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.channels))
	for _, conn := range h.channels {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	sort.Slice(conns, func(i, j int) bool {
		return conns[i].seq < conns[j].seq
	})
	return conns
}

// ClientCount returns the number of registered channels.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}

// Connections returns a snapshot of the registered channels.
func (h *Hub) Connections() []*Connection {
	return h.snapshot()
}

// RunWithContext keeps the hub open until ctx is done, then closes every
// channel and refuses new ones. It is designed for suture supervision; a
// restart reopens the hub.
func (h *Hub) RunWithContext(ctx context.Context) error {
	h.mu.Lock()
	h.closed = false
	h.mu.Unlock()

	<-ctx.Done()

	count := h.closeAll()
	logging.Info().
		Str("component", "relay-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("relay hub stopped")
	return ctx.Err()
}

// closeAll closes and removes every channel and marks the hub closed.
func (h *Hub) closeAll() int {
	h.mu.Lock()
	h.closed = true
	conns := make([]*Connection, 0, len(h.channels))
	for id, conn := range h.channels {
		conns = append(conns, conn)
		delete(h.channels, id)
	}
	metrics.WSConnections.Set(0)
	h.mu.Unlock()

	for _, conn := range conns {
		conn.Channel.Close()
	}
	return len(conns)
}

// getShutdownReason determines the shutdown reason from the context error.
func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}
