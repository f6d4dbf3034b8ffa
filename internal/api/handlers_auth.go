// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callrelay/internal/auth"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
	"github.com/tomtom215/callrelay/internal/validation"
)

// maxLoginBodyBytes bounds the login request body.
const maxLoginBodyBytes = 4 * 1024

// Login exchanges operator credentials for a session token.
//
//	400 {"error": "Invalid input"}                 malformed body or empty fields
//	401 {"error": "Invalid credentials"}           wrong username or password
//	500 {"error": "Admin password not configured"} no password hash configured
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseAndValidateLoginRequest(w, r)
	if !ok {
		return
	}

	token, expiresAt, err := h.issuer.IssueToken(req.Username, req.Password)
	if err != nil {
		h.handleLoginError(w, r, req.Username, err)
		return
	}

	metrics.RecordLoginAttempt(true)
	h.security.LogLoginSuccess(req.Username, r.RemoteAddr, r.UserAgent())
	respondJSON(w, http.StatusOK, models.LoginResponse{Token: token, ExpiresAt: expiresAt})
}

// parseAndValidateLoginRequest parses and validates the login request body.
func (h *Handler) parseAndValidateLoginRequest(w http.ResponseWriter, r *http.Request) (*models.LoginRequest, bool) {
	var req models.LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input", "request body must be a JSON object")
		return nil, false
	}

	req.Username = strings.TrimSpace(req.Username)
	if verr := validation.ValidateStruct(&req); verr != nil {
		apiErr := verr.ToAPIError()
		respondError(w, http.StatusBadRequest, "Invalid input", apiErr.Message)
		return nil, false
	}
	return &req, true
}

func (h *Handler) handleLoginError(w http.ResponseWriter, r *http.Request, username string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		metrics.RecordLoginAttempt(false)
		h.security.LogLoginFailure(username, r.RemoteAddr, r.UserAgent(), "invalid credentials")
		respondError(w, http.StatusUnauthorized, "Invalid credentials", "")
	case errors.Is(err, auth.ErrNotConfigured):
		logging.Ctx(r.Context()).Error().Msg("Login attempted but ADMIN_PASSWORD_HASH is not configured")
		respondError(w, http.StatusInternalServerError, "Admin password not configured", "")
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to issue session token")
		respondError(w, http.StatusInternalServerError, "Failed to issue token", "")
	}
}
