// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

/*
Package services adapts CallRelay components to the suture.Service model:

	type Service interface {
	    Serve(ctx context.Context) error
	}

HTTPServerService turns the blocking ListenAndServe/Shutdown pair of an
*http.Server into a context-aware Serve with a bounded graceful shutdown.

RelayHubService delegates to relay.Hub.RunWithContext, which closes every
live channel when the context ends and refuses new ones until the hub is
served again.

Every wrapper implements fmt.Stringer so suture log lines name the service.
*/
package services
