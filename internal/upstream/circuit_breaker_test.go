// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package upstream

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func newTestBreaker(baseURL string) *CircuitBreakerGateway {
	cfg := testUpstreamConfig(baseURL)
	return NewCircuitBreakerGateway(NewGateway(NewClient(cfg), cfg), cfg)
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message": "boom"}`)
	})
	cbg := newTestBreaker(fp.srv.URL)

	for i := 0; i < 2; i++ {
		_, err := cbg.ListRecent(context.Background(), 10)
		var upErr *UpstreamError
		if !errors.As(err, &upErr) || upErr.StatusCode != http.StatusInternalServerError {
			t.Fatalf("call %d error = %v, want 500 *UpstreamError", i, err)
		}
	}
	if cbg.State() != "open" {
		t.Fatalf("State() = %q, want open", cbg.State())
	}

	_, err := cbg.ListRecent(context.Background(), 10)
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("error = %v, want ErrCircuitOpen", err)
	}
	var upErr *UpstreamError
	if !errors.As(err, &upErr) || upErr.Op != OpListRecordings {
		t.Errorf("rejection should surface as *UpstreamError, got %v", err)
	}
	if hits := fp.hits.Load(); hits != 2 {
		t.Errorf("provider hits = %d, want 2", hits)
	}
}

func TestCircuitBreaker_NotFoundDoesNotTrip(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message": "not found"}`)
	})
	cbg := newTestBreaker(fp.srv.URL)

	for i := 0; i < 5; i++ {
		if _, err := cbg.ResolveAccessURL(context.Background(), testRecordingID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("call %d error = %v, want ErrNotFound", i, err)
		}
	}
	if cbg.State() != "closed" {
		t.Errorf("State() = %q, want closed", cbg.State())
	}
}

func TestCircuitBreaker_InvalidIDShortCircuits(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{}`)
	})
	cbg := newTestBreaker(fp.srv.URL)

	if _, err := cbg.ResolveAccessURL(context.Background(), "bad"); !errors.Is(err, ErrInvalidRecordingID) {
		t.Errorf("error = %v, want ErrInvalidRecordingID", err)
	}
	if fp.hits.Load() != 0 {
		t.Error("provider was called for an invalid id")
	}
}

func TestCircuitBreaker_PassesThroughSuccess(t *testing.T) {
	fp := newFakeProvider(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, listBody)
	})
	cbg := newTestBreaker(fp.srv.URL)

	refs, err := cbg.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("len(refs) = %d, want 2", len(refs))
	}
}
