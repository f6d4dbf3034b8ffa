// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/relay"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type staticVerifier struct{}

func (staticVerifier) VerifyToken(token string) (*auth.Identity, error) {
	if token != "good" {
		return nil, auth.ErrInvalidOrExpired
	}
	return &auth.Identity{Username: "admin", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type stubChannel struct {
	done chan struct{}
	once sync.Once
}

func (c *stubChannel) Send(relay.Message) bool { return true }
func (c *stubChannel) Close()                  { c.once.Do(func() { close(c.done) }) }
func (c *stubChannel) Done() <-chan struct{}   { return c.done }

func TestRelayHubService_ClosesChannelsOnShutdown(t *testing.T) {
	hub := relay.NewHub(staticVerifier{})
	svc := NewRelayHubService(hub)
	if svc.String() != "relay-hub" {
		t.Errorf("String() = %q", svc.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	ch := &stubChannel{done: make(chan struct{})}
	conn, err := hub.Connect("good", func(string, *auth.Identity) (relay.Channel, error) { return ch, nil })
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	if conn.Identity.Username != "admin" {
		t.Errorf("identity = %+v", conn.Identity)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}

	select {
	case <-ch.Done():
	default:
		t.Error("channel still open after hub shutdown")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() = %d, want 0", n)
	}

	_, err = hub.Connect("good", func(string, *auth.Identity) (relay.Channel, error) {
		t.Error("opener called on a closed hub")
		return nil, errors.New("unreachable")
	})
	if !errors.Is(err, relay.ErrHubClosed) {
		t.Errorf("Connect() after shutdown = %v, want ErrHubClosed", err)
	}
}
