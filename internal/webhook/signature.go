// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package webhook

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the provider's signing scheme is HMAC-SHA1
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net"
	"net/url"
	"sort"
	"strings"
)

// SignatureHeader is the header the provider puts its signature in.
const SignatureHeader = "X-Twilio-Signature"

// AltSignatureHeader is accepted as well, for relays that rename provider headers.
const AltSignatureHeader = "X-Provider-Signature"

// bodyHashParam marks JSON callbacks whose body is covered by a hash in the URL.
const bodyHashParam = "bodySHA256"

// ComputeSignature returns the base64 HMAC-SHA1 signature the provider would
// send for a form callback to requestURL carrying params.
func ComputeSignature(secret, requestURL string, params url.Values) string {
	var b strings.Builder
	b.WriteString(requestURL)

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		values := append([]string(nil), params[k]...)
		sort.Strings(values)
		for _, v := range values {
			b.WriteString(k)
			b.WriteString(v)
		}
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the provider's signature for a request
// to requestURL with rawBody. It never panics and returns false on any
// problem, including an empty secret or signature and an unparsable body.
//
// The provider may or may not have included the default port in the URL it
// signed, so both forms are tried.
func Verify(secret, requestURL string, rawBody []byte, signature string) bool {
	if secret == "" || signature == "" || requestURL == "" {
		return false
	}

	u, err := url.Parse(requestURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	if expectedHash := u.Query().Get(bodyHashParam); expectedHash != "" {
		if !verifyBodyHash(rawBody, expectedHash) {
			return false
		}
		return matchesAnyURLForm(secret, requestURL, u, nil, signature)
	}

	params, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return false
	}
	return matchesAnyURLForm(secret, requestURL, u, params, signature)
}

// matchesAnyURLForm checks the URL exactly as received, then with its
// default port toggled.
func matchesAnyURLForm(secret, requestURL string, u *url.URL, params url.Values, signature string) bool {
	alternate := withDefaultPort(u)
	if u.Port() != "" {
		alternate = withoutDefaultPort(u)
	}

	for _, candidate := range []string{requestURL, alternate} {
		expected := ComputeSignature(secret, candidate, params)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1 {
			return true
		}
	}
	return false
}

func verifyBodyHash(rawBody []byte, expectedHex string) bool {
	sum := sha256.Sum256(rawBody)
	actual := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(actual), []byte(strings.ToLower(expectedHex))) == 1
}

func defaultPort(scheme string) string {
	switch strings.ToLower(scheme) {
	case "https":
		return "443"
	case "http":
		return "80"
	default:
		return ""
	}
}

// withoutDefaultPort strips an explicit default port: https://h:443/p -> https://h/p.
func withoutDefaultPort(u *url.URL) string {
	c := *u
	if port := c.Port(); port != "" && port == defaultPort(c.Scheme) {
		c.Host = c.Hostname()
		if strings.Contains(c.Host, ":") {
			c.Host = "[" + c.Host + "]"
		}
	}
	return c.String()
}

// withDefaultPort adds the scheme's default port when none is present.
func withDefaultPort(u *url.URL) string {
	c := *u
	if c.Port() == "" {
		if port := defaultPort(c.Scheme); port != "" {
			c.Host = net.JoinHostPort(c.Hostname(), port)
		}
	}
	return c.String()
}
