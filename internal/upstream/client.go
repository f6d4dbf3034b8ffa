// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/logging"
	"github.com/tomtom215/callrelay/internal/metrics"
)

// maxErrorBodySize limits the maximum amount of response body read for error reporting
const maxErrorBodySize = 64 * 1024 // 64KB

// maxErrorMessageLen bounds how much of a provider error ends up in error strings.
const maxErrorMessageLen = 256

// readBodyForError reads the response body for error reporting (max 64KB).
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	return body
}

// providerError is the provider's JSON error document.
type providerError struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	MoreInfo string `json:"more_info"`
	Status   int    `json:"status"`
}

// describeErrorBody turns an error response into a short message, preferring
// the provider's own message when the body is its JSON error document.
func describeErrorBody(body []byte) string {
	var perr providerError
	if err := json.Unmarshal(body, &perr); err == nil && perr.Message != "" {
		if perr.Code != 0 {
			return fmt.Sprintf("%s (code %d)", perr.Message, perr.Code)
		}
		return perr.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorMessageLen {
		msg = msg[:maxErrorMessageLen] + "..."
	}
	if msg == "" {
		return "empty response body"
	}
	return msg
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTransport replaces the HTTP transport, e.g. with an otelhttp transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.httpClient.Transport = rt
	}
}

// Client performs authenticated, paced GET requests against the provider API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	accountSID string
	authToken  string
	limiter    *rate.Limiter
}

// NewClient creates a provider client from configuration.
func NewClient(cfg *config.UpstreamConfig, opts ...ClientOption) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 10
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccountSID returns the account the client authenticates as.
func (c *Client) AccountSID() string {
	return c.accountSID
}

// accountPath builds an account-scoped resource path.
func (c *Client) accountPath(resource string) string {
	return fmt.Sprintf("/2010-04-01/Accounts/%s/%s", url.PathEscape(c.accountSID), resource)
}

// getJSON performs a GET against path and decodes the JSON response into out.
// Every failure is returned as *UpstreamError.
func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
	}

	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("create request failed: %w", err)}
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest(op, 0, time.Since(start))
		return &UpstreamError{Op: op, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()
	metrics.RecordUpstreamRequest(op, resp.StatusCode, time.Since(start))

	if resp.StatusCode == http.StatusNotFound {
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: ErrNotFound}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := describeErrorBody(readBodyForError(resp.Body))
		logging.Ctx(ctx).Warn().
			Str("operation", op).
			Int("status_code", resp.StatusCode).
			Str("provider_message", logging.SanitizeLogValue(msg)).
			Msg("Upstream provider returned an error")
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("provider error: %s", msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
