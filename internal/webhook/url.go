// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package webhook

import (
	"net/http"
	"strings"
)

// RequestURL reconstructs the absolute URL the provider requested, as it
// would have been signed: scheme, host and the original request URI.
//
// A non-empty publicBaseURL is authoritative for scheme and host. Otherwise
// X-Forwarded-Proto and X-Forwarded-Host are honoured only when
// trustForwarded is set, since any client can send them.
func RequestURL(r *http.Request, publicBaseURL string, trustForwarded bool) string {
	requestURI := r.RequestURI
	if requestURI == "" {
		requestURI = r.URL.RequestURI()
	}

	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/") + requestURI
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	host := r.Host

	if trustForwarded {
		if proto := firstHeaderValue(r, "X-Forwarded-Proto"); proto != "" {
			scheme = strings.ToLower(proto)
		}
		if fwdHost := firstHeaderValue(r, "X-Forwarded-Host"); fwdHost != "" {
			host = fwdHost
		}
	}

	return scheme + "://" + host + requestURI
}

// firstHeaderValue returns the first entry of a possibly comma-joined header.
func firstHeaderValue(r *http.Request, name string) string {
	v := r.Header.Get(name)
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
