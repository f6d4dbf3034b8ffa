// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
)

type contextKey string

// IdentityContextKey is the request context key holding the verified *Identity.
const IdentityContextKey contextKey = "identity"

// BearerSubprotocol is the Sec-WebSocket-Protocol marker that precedes a
// token for browsers that cannot set an Authorization header on upgrade.
const BearerSubprotocol = "bearer"

// TokenVerifier verifies session tokens. *Authority implements it.
type TokenVerifier interface {
	VerifyToken(token string) (*Identity, error)
}

// Gate is the single operator authorization checkpoint. It fronts every
// protected REST route and the push-channel handshake. The webhook ingestion
// route never passes through it.
type Gate struct {
	verifier TokenVerifier
	security *logging.SecurityLogger
}

// NewGate creates a Gate backed by verifier.
func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{
		verifier: verifier,
		security: logging.NewSecurityLogger(),
	}
}

// Middleware requires "Authorization: Bearer <token>".
//
//   - missing token: 401 "Access token required"
//   - expired token: 401 "Invalid or expired token"
//   - any other verification failure: 403 "Invalid or expired token"
//
// On success the verified identity is stored in the request context.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return g.guard(BearerToken, next)
}

// HandshakeMiddleware applies the same checks as Middleware to the token
// found by HandshakeToken. It fronts the push-channel endpoint, where
// browsers cannot always send an Authorization header.
func (g *Gate) HandshakeMiddleware(next http.Handler) http.Handler {
	return g.guard(HandshakeToken, next)
}

func (g *Gate) guard(extract func(*http.Request) string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.verifier.VerifyToken(extract(r))
		if err != nil {
			g.Reject(w, r, err)
			return
		}

		metrics.RecordTokenVerification(true)
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	})
}

// Reject writes the gate's response for a failed verification: a JSON error
// with the status chosen by RejectionStatus.
func (g *Gate) Reject(w http.ResponseWriter, r *http.Request, err error) {
	metrics.RecordTokenVerification(false)
	g.security.LogTokenRejected(r.RemoteAddr, r.URL.Path, HandshakeToken(r), err.Error())

	status, message := RejectionStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(models.ErrorResponse{Error: message}); encErr != nil {
		logging.Error().Err(encErr).Msg("Failed to encode gate rejection")
	}
}

// RejectionStatus maps a verification error to the HTTP status and message
// returned to operators.
func RejectionStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMissingToken):
		return http.StatusUnauthorized, "Access token required"
	case errors.Is(err, ErrTokenExpired):
		return http.StatusUnauthorized, "Invalid or expired token"
	default:
		return http.StatusForbidden, "Invalid or expired token"
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
// Returns "" when the header is absent or uses another scheme.
func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// HandshakeToken extracts the push-channel auth payload, checked in order:
// the "token" query parameter, an Authorization bearer header, then a
// "Sec-WebSocket-Protocol: bearer, <token>" pair.
func HandshakeToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if token := BearerToken(r); token != "" {
		return token
	}

	var protocols []string
	for _, header := range r.Header.Values("Sec-WebSocket-Protocol") {
		for _, p := range strings.Split(header, ",") {
			if p = strings.TrimSpace(p); p != "" {
				protocols = append(protocols, p)
			}
		}
	}
	for i := 0; i+1 < len(protocols); i++ {
		if strings.EqualFold(protocols[i], BearerSubprotocol) {
			return protocols[i+1]
		}
	}
	return ""
}

// ContextWithIdentity returns a copy of ctx carrying identity.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

// IdentityFromContext returns the identity stored by the Gate, if any.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(*Identity)
	return identity, ok && identity != nil
}
