// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package middleware

import (
	"net/http"
	"net/url"
)

// SecurityHeaders adds security headers to every response.
//
// Headers added:
//   - X-Content-Type-Options: nosniff
//   - X-Frame-Options: DENY
//   - Referrer-Policy: strict-origin-when-cross-origin
//   - Content-Security-Policy: default-src 'none'; frame-ancestors 'none'
//   - Strict-Transport-Security when the request arrived over HTTPS
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

// HTTPSRedirect redirects requests that did not arrive over HTTPS, as
// reported by X-Forwarded-Proto from the TLS-terminating proxy. When
// publicBaseURL is set its host is used as the redirect target instead of
// the client-supplied Host header.
func HTTPSRedirect(publicBaseURL string) func(http.Handler) http.Handler {
	var canonicalHost string
	if u, err := url.Parse(publicBaseURL); err == nil {
		canonicalHost = u.Host
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Forwarded-Proto") == "https" {
				next.ServeHTTP(w, r)
				return
			}

			host := canonicalHost
			if host == "" {
				host = r.Host
			}
			target := url.URL{
				Scheme:   "https",
				Host:     host,
				Path:     r.URL.Path,
				RawPath:  r.URL.RawPath,
				RawQuery: r.URL.RawQuery,
			}
			http.Redirect(w, r, target.String(), http.StatusFound)
		})
	}
}
