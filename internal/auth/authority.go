// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package auth

import (
	"crypto/subtle"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Identity is the verified operator identity carried by a session token.
type Identity struct {
	Username  string
	ExpiresAt time.Time
}

// Authority validates operator credentials against the single configured
// identity and issues and verifies session tokens. It holds no per-request
// state; brute-force protection is applied by the HTTP layer.
type Authority struct {
	username     string
	passwordHash []byte // bcrypt hash
	tokens       *JWTManager
}

// NewAuthority creates an Authority for the configured operator. An empty
// passwordHash is accepted here and reported as ErrNotConfigured on login.
func NewAuthority(username, passwordHash string, tokens *JWTManager) *Authority {
	return &Authority{
		username:     username,
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
	}
}

// IssueToken checks the credentials and returns a signed session token and
// its expiry.
func (a *Authority) IssueToken(username, password string) (string, time.Time, error) {
	if len(a.passwordHash) == 0 {
		return "", time.Time{}, ErrNotConfigured
	}

	if !a.validateUsernamePassword(username, password) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	return a.tokens.GenerateToken(a.username)
}

// VerifyToken verifies the token's signature and expiry and returns the
// identity it carries. A token is either fully valid or rejected.
func (a *Authority) VerifyToken(token string) (*Identity, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	return &Identity{
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// validateUsernamePassword performs constant-time comparison of credentials.
// The bcrypt comparison runs even when the username is wrong so both paths
// take the same time.
func (a *Authority) validateUsernamePassword(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}
