// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package services

import (
	"context"
)

// ContextHub matches relay.Hub's RunWithContext method.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// RelayHubService wraps the push-channel hub as a supervised service.
//
//	hub := relay.NewHub(authority)
//	tree.AddRelayService(services.NewRelayHubService(hub))
type RelayHubService struct {
	hub  ContextHub
	name string
}

// NewRelayHubService creates a new relay hub service wrapper.
func NewRelayHubService(hub ContextHub) *RelayHubService {
	return &RelayHubService{
		hub:  hub,
		name: "relay-hub",
	}
}

// Serve implements suture.Service. It returns ctx.Err() on normal shutdown.
func (s *RelayHubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for suture log lines.
func (s *RelayHubService) String() string {
	return s.name
}
