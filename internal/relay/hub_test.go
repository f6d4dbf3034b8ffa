// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package relay

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// fakeVerifier accepts exactly one token.
type fakeVerifier struct {
	valid string
}

func (v fakeVerifier) VerifyToken(token string) (*auth.Identity, error) {
	switch token {
	case "":
		return nil, auth.ErrMissingToken
	case v.valid:
		return &auth.Identity{Username: "admin", ExpiresAt: time.Now().Add(time.Hour)}, nil
	case "expired":
		return nil, errors.Join(auth.ErrInvalidOrExpired, auth.ErrTokenExpired)
	default:
		return nil, auth.ErrInvalidOrExpired
	}
}

// fakeChannel records messages in memory with a bounded queue.
type fakeChannel struct {
	mu       sync.Mutex
	messages []Message
	capacity int
	closed   bool
	closes   int
	done     chan struct{}
	doneOnce sync.Once
}

func newFakeChannel(capacity int) *fakeChannel {
	return &fakeChannel{capacity: capacity, done: make(chan struct{})}
}

func (c *fakeChannel) Send(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.messages) >= c.capacity {
		return false
	}
	c.messages = append(c.messages, msg)
	return true
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.closes++
}

func (c *fakeChannel) Done() <-chan struct{} { return c.done }

// hangUp simulates the remote side going away.
func (c *fakeChannel) hangUp() {
	c.doneOnce.Do(func() { close(c.done) })
}

func (c *fakeChannel) received() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func openWith(ch Channel) Opener {
	return func(string, *auth.Identity) (Channel, error) {
		return ch, nil
	}
}

func connectFake(t *testing.T, hub *Hub, capacity int) (*fakeChannel, *Connection) {
	t.Helper()
	ch := newFakeChannel(capacity)
	conn, err := hub.Connect("good", openWith(ch))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	return ch, conn
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func testEvent() *models.RecordingEvent {
	duration := 45
	return &models.RecordingEvent{
		RecordingSID: "RE0123456789abcdef0123456789abcdef",
		RecordingURL: "https://api.twilio.com/recordings/RE0123456789abcdef0123456789abcdef",
		CallSID:      "CA0123456789abcdef0123456789abcdef",
		Duration:     &duration,
		Timestamp:    time.Now().UTC(),
	}
}

func TestHub_ConnectRegistersAuthenticatedChannel(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})

	var gotID string
	var gotIdentity *auth.Identity
	ch := newFakeChannel(8)
	conn, err := hub.Connect("good", func(id string, identity *auth.Identity) (Channel, error) {
		gotID = id
		gotIdentity = identity
		return ch, nil
	})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if conn.ID == "" || conn.ID != gotID {
		t.Errorf("connection id = %q, opener saw %q", conn.ID, gotID)
	}
	if gotIdentity == nil || gotIdentity.Username != "admin" {
		t.Errorf("opener identity = %+v", gotIdentity)
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}
}

func TestHub_ConnectRejectsBeforeOpening(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"missing token", "", auth.ErrMissingToken},
		{"expired token", "expired", auth.ErrTokenExpired},
		{"forged token", "forged", auth.ErrInvalidOrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub(fakeVerifier{valid: "good"})
			opened := false

			_, err := hub.Connect(tt.token, func(string, *auth.Identity) (Channel, error) {
				opened = true
				return newFakeChannel(1), nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Connect() error = %v, want %v", err, tt.wantErr)
			}
			if opened {
				t.Error("opener ran for a rejected token")
			}
			if hub.ClientCount() != 0 {
				t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
			}
		})
	}
}

func TestHub_ConnectOpenerFailure(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	boom := errors.New("upgrade failed")

	_, err := hub.Connect("good", func(string, *auth.Identity) (Channel, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Connect() error = %v, want %v", err, boom)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestHub_ConnectionIDsAreUnique(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		_, conn := connectFake(t, hub, 1)
		if seen[conn.ID] {
			t.Fatalf("duplicate connection id %q", conn.ID)
		}
		seen[conn.ID] = true
	}
}

func TestHub_BroadcastDeliversToEveryChannel(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	a, _ := connectFake(t, hub, 8)
	b, _ := connectFake(t, hub, 8)
	event := testEvent()

	if delivered := hub.Broadcast(event); delivered != 2 {
		t.Errorf("Broadcast() delivered = %d, want 2", delivered)
	}

	for name, ch := range map[string]*fakeChannel{"a": a, "b": b} {
		msgs := ch.received()
		if len(msgs) != 1 {
			t.Fatalf("channel %s received %d messages, want 1", name, len(msgs))
		}
		if msgs[0].Type != MessageTypeNewRecording {
			t.Errorf("channel %s type = %q", name, msgs[0].Type)
		}
		if msgs[0].Data != event {
			t.Errorf("channel %s data = %v, want the broadcast event", name, msgs[0].Data)
		}
	}
}

func TestHub_BroadcastWithNoChannels(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	if delivered := hub.Broadcast(testEvent()); delivered != 0 {
		t.Errorf("Broadcast() delivered = %d, want 0", delivered)
	}
}

func TestHub_BroadcastDropsChannelThatCannotAccept(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	healthy, _ := connectFake(t, hub, 8)
	stuck, _ := connectFake(t, hub, 0)

	if delivered := hub.Broadcast(testEvent()); delivered != 1 {
		t.Errorf("Broadcast() delivered = %d, want 1", delivered)
	}
	if !stuck.isClosed() {
		t.Error("full channel was not closed")
	}
	if healthy.isClosed() {
		t.Error("healthy channel was closed")
	}
	if hub.ClientCount() != 1 {
		t.Errorf("ClientCount() = %d, want 1", hub.ClientCount())
	}

	hub.Broadcast(testEvent())
	if got := len(healthy.received()); got != 2 {
		t.Errorf("healthy channel received %d, want 2", got)
	}
}

func TestHub_DisconnectedChannelMissesLaterBroadcasts(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	ch, conn := connectFake(t, hub, 8)

	hub.Disconnect(conn.ID)
	hub.Disconnect(conn.ID) // idempotent

	hub.Broadcast(testEvent())
	if got := len(ch.received()); got != 0 {
		t.Errorf("disconnected channel received %d messages", got)
	}
	if ch.closes != 1 {
		t.Errorf("Close() called %d times, want 1", ch.closes)
	}
	hub.Disconnect("never-registered")
}

func TestHub_RemoteHangUpUnregisters(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	ch, _ := connectFake(t, hub, 8)

	ch.hangUp()
	waitFor(t, func() bool { return hub.ClientCount() == 0 })
}

func TestHub_ConcurrentConnectAndBroadcast(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := newFakeChannel(64)
			conn, err := hub.Connect("good", openWith(ch))
			if err != nil {
				t.Errorf("Connect() error = %v", err)
				return
			}
			hub.Disconnect(conn.ID)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast(testEvent())
		}()
	}
	wg.Wait()

	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}
}

func TestHub_ConnectionGaugeMatchesMembership(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(keep bool) {
			defer wg.Done()
			conn, err := hub.Connect("good", openWith(newFakeChannel(4)))
			if err != nil {
				t.Errorf("Connect() error = %v", err)
				return
			}
			if !keep {
				hub.Disconnect(conn.ID)
			}
		}(i%2 == 0)
	}
	wg.Wait()

	if got := hub.ClientCount(); got != 10 {
		t.Fatalf("ClientCount() = %d, want 10", got)
	}
	if got := testutil.ToFloat64(metrics.WSConnections); got != 10 {
		t.Errorf("websocket_connections = %v, want 10", got)
	}
}

func TestHub_ConnectionsInConnectOrder(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	var ids []string
	for i := 0; i < 5; i++ {
		_, conn := connectFake(t, hub, 1)
		ids = append(ids, conn.ID)
	}

	conns := hub.Connections()
	if len(conns) != len(ids) {
		t.Fatalf("Connections() len = %d, want %d", len(conns), len(ids))
	}
	for i, conn := range conns {
		if conn.ID != ids[i] {
			t.Errorf("Connections()[%d] = %s, want %s", i, conn.ID, ids[i])
		}
	}
}

func TestHub_RunWithContextClosesChannels(t *testing.T) {
	hub := NewHub(fakeVerifier{valid: "good"})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()

	waitFor(t, func() bool {
		hub.mu.RLock()
		defer hub.mu.RUnlock()
		return !hub.closed
	})
	a, _ := connectFake(t, hub, 8)
	b, _ := connectFake(t, hub, 8)

	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return after cancel")
	}

	if !a.isClosed() || !b.isClosed() {
		t.Error("channels were not closed on shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount() = %d, want 0", hub.ClientCount())
	}

	_, err := hub.Connect("good", openWith(newFakeChannel(1)))
	if !errors.Is(err, ErrHubClosed) {
		t.Errorf("Connect() after shutdown error = %v, want ErrHubClosed", err)
	}
}

func TestGetShutdownReason(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled reason = %q", got)
	}

	expired, cancel2 := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel2()
	<-expired.Done()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline reason = %q", got)
	}
}
