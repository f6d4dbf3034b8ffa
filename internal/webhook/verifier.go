// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package webhook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
	"github.com/tomtom215/callrelay/internal/models"
)

type contextKey string

const deliveryContextKey contextKey = "webhook_delivery"

// defaultMaxBodyBytes bounds the raw body when no limit is configured.
const defaultMaxBodyBytes = 1 << 20

// Delivery is a callback that passed signature verification.
type Delivery struct {
	// URL is the reconstructed URL the signature was checked against.
	URL string
	// RawBody is the exact body that was verified.
	RawBody []byte
	// Form holds the decoded fields. For JSON callbacks these are the
	// top-level scalar members of the body.
	Form url.Values
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Secret is the provider auth token used as the HMAC key.
	Secret string
	// PublicBaseURL overrides scheme and host during URL reconstruction.
	PublicBaseURL string
	// TrustForwarded enables X-Forwarded-Proto / X-Forwarded-Host.
	TrustForwarded bool
	// MaxBodyBytes bounds the raw body read.
	MaxBodyBytes int64
}

// Verifier guards webhook routes with the provider signature check. It is
// the only guard those routes have; operator tokens are never consulted.
type Verifier struct {
	cfg      VerifierConfig
	security *logging.SecurityLogger
}

// NewVerifier creates a Verifier.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &Verifier{
		cfg:      cfg,
		security: logging.NewSecurityLogger(),
	}
}

// Check captures the raw body of r and verifies its signature. The body is
// read exactly once, before any parsing, and r.Body is replaced with a
// reader over the same bytes.
func (v *Verifier) Check(w http.ResponseWriter, r *http.Request) (*Delivery, error) {
	if v.cfg.Secret == "" {
		return nil, ErrSecretNotConfigured
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" {
		signature = r.Header.Get(AltSignatureHeader)
	}
	if signature == "" {
		return nil, ErrMissingSignature
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, v.cfg.MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, ErrBodyTooLarge
		}
		return nil, fmt.Errorf("read webhook body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(raw))

	requestURL := RequestURL(r, v.cfg.PublicBaseURL, v.cfg.TrustForwarded)
	if !Verify(v.cfg.Secret, requestURL, raw, signature) {
		return nil, ErrInvalidSignature
	}

	delivery := &Delivery{URL: requestURL, RawBody: raw, Form: url.Values{}}
	if u, err := url.Parse(requestURL); err == nil && u.Query().Get(bodyHashParam) != "" {
		delivery.Form = formFromJSON(raw)
	} else {
		// Verify already proved the body parses.
		delivery.Form, _ = url.ParseQuery(string(raw))
	}
	return delivery, nil
}

// formFromJSON flattens the top-level scalar members of a JSON callback
// into form values so both callback encodings normalize the same way.
// Nested objects, arrays and nulls are skipped. A body that is not a JSON
// object yields no fields.
func formFromJSON(raw []byte) url.Values {
	form := url.Values{}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var members map[string]interface{}
	if err := dec.Decode(&members); err != nil {
		return form
	}

	for key, value := range members {
		switch v := value.(type) {
		case string:
			form.Set(key, v)
		case json.Number:
			form.Set(key, v.String())
		case bool:
			form.Set(key, strconv.FormatBool(v))
		}
	}
	return form
}

// Middleware rejects unverified deliveries and passes verified ones on with
// the Delivery in the request context.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivery, err := v.Check(w, r)
		if err != nil {
			v.reject(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithDelivery(r.Context(), delivery)))
	})
}

func (v *Verifier) reject(w http.ResponseWriter, r *http.Request, err error) {
	var (
		status  int
		message string
	)

	switch {
	case errors.Is(err, ErrSecretNotConfigured):
		status, message = http.StatusInternalServerError, "Server configuration error"
		metrics.RecordWebhookDelivery("misconfigured")
		logging.Ctx(r.Context()).Error().Msg("Webhook signing secret not configured")
	case errors.Is(err, ErrMissingSignature):
		status, message = http.StatusUnauthorized, "Unauthorized - missing signature"
		metrics.RecordWebhookDelivery("rejected")
		v.security.LogSignatureFailure(r.RemoteAddr, r.URL.Path, err.Error())
	case errors.Is(err, ErrInvalidSignature):
		status, message = http.StatusUnauthorized, "Unauthorized - invalid signature"
		metrics.RecordWebhookDelivery("rejected")
		v.security.LogSignatureFailure(r.RemoteAddr, r.URL.Path, err.Error())
	case errors.Is(err, ErrBodyTooLarge):
		status, message = http.StatusRequestEntityTooLarge, "Request body too large"
		metrics.RecordWebhookDelivery("rejected")
	default:
		status, message = http.StatusBadRequest, "Unreadable request body"
		metrics.RecordWebhookDelivery("rejected")
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to read webhook body")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(models.ErrorResponse{Error: message}); encErr != nil {
		logging.Error().Err(encErr).Msg("Failed to encode webhook rejection")
	}
}

// ContextWithDelivery returns a copy of ctx carrying d.
func ContextWithDelivery(ctx context.Context, d *Delivery) context.Context {
	return context.WithValue(ctx, deliveryContextKey, d)
}

// DeliveryFromContext returns the verified delivery stored by the Verifier.
func DeliveryFromContext(ctx context.Context) (*Delivery, bool) {
	d, ok := ctx.Value(deliveryContextKey).(*Delivery)
	return d, ok && d != nil
}
