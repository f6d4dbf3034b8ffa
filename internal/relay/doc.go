// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package relay maintains the set of live, authenticated operator channels and
broadcasts recording events to them.

Key Components:

  - Hub: the live-channel registry. Owned by one instance and passed to the
    HTTP layer; there is no package-level state.
  - Channel: the transport-neutral view of one connection (Send, Close, Done).
  - Client: the gorilla/websocket implementation of Channel, with separate
    read and write pumps.

Connection Lifecycle:

	conn, err := hub.Connect(token, func(id string, identity *auth.Identity) (relay.Channel, error) {
	    ws, err := upgrader.Upgrade(w, r, nil)
	    if err != nil {
	        return nil, err
	    }
	    client := relay.NewClient(id, ws)
	    client.Start()
	    return client, nil
	})

The token is verified before the opener runs, so a channel that fails
authentication is never upgraded and never registered.

Broadcast Semantics:

Broadcast takes a snapshot of the registry under a read lock and then sends
to each channel without blocking. A channel whose queue is full or closed is
disconnected. Delivery is at-most-once per channel; nothing is queued for
channels that connect later.
*/
package relay
