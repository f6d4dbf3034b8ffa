// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package supervisor runs the long-lived parts of CallRelay under a suture v4
supervisor tree.

Tree layout:

	callrelay (root)
	├── relay-layer   live push-channel registry (relay.Hub)
	└── api-layer     HTTP server

Each layer is its own supervisor, so a relay hub that keeps failing backs
off on its own without taking the HTTP listener down with it. Supervisor
events are logged through sutureslog into the zerolog stream:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRelayService(services.NewRelayHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

The suture.Service adapters live in the services subpackage.
*/
package supervisor
