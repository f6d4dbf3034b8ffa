// CallRelay - Call Recording Webhook Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/callrelay

package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/callrelay/internal/config"
	"github.com/tomtom215/callrelay/internal/models"
	"github.com/tomtom215/callrelay/internal/validation"
)

// Gateway operation names, used in errors and metrics.
const (
	OpListRecordings   = "list_recordings"
	OpFetchRecording   = "fetch_recording"
	OpResolveAccessURL = "resolve_access_url"
)

// List limits. The provider caps a page at 1000 records.
const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

const (
	providerTimeLayout   = time.RFC1123Z
	recordingsResource   = "Recordings.json"
	recordingResourceFmt = "Recordings/%s.json"
)

// RecordGateway is the read-only view of the provider's recordings.
type RecordGateway interface {
	ListRecent(ctx context.Context, limit int) ([]models.RecordingReference, error)
	ResolveAccessURL(ctx context.Context, id string) (string, error)
}

// Gateway talks to the provider's Recordings resource.
type Gateway struct {
	client       *Client
	mediaBaseURL string
	defaultLimit int
}

// NewGateway creates a Gateway over client.
func NewGateway(client *Client, cfg *config.UpstreamConfig) *Gateway {
	limit := cfg.DefaultListLimit
	if limit < 1 || limit > MaxListLimit {
		limit = DefaultListLimit
	}
	return &Gateway{
		client:       client,
		mediaBaseURL: strings.TrimRight(cfg.MediaBaseURL, "/"),
		defaultLimit: limit,
	}
}

// ListRecent returns up to limit recent recordings in provider order.
// limit <= 0 selects the configured default; values above MaxListLimit are capped.
func (g *Gateway) ListRecent(ctx context.Context, limit int) ([]models.RecordingReference, error) {
	if limit <= 0 {
		limit = g.defaultLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	query := url.Values{}
	query.Set("PageSize", strconv.Itoa(limit))

	var page recordingPage
	if err := g.client.getJSON(ctx, OpListRecordings, g.client.accountPath(recordingsResource), query, &page); err != nil {
		return nil, err
	}

	refs := make([]models.RecordingReference, 0, len(page.Recordings))
	for i := range page.Recordings {
		if len(refs) == limit {
			break
		}
		refs = append(refs, page.Recordings[i].toReference())
	}
	return refs, nil
}

// Fetch returns a single recording by id.
func (g *Gateway) Fetch(ctx context.Context, id string) (*models.RecordingReference, error) {
	return g.fetch(ctx, OpFetchRecording, id)
}

// ResolveAccessURL confirms the recording exists and returns the URL of its
// audio, built from the identifiers the provider returned.
func (g *Gateway) ResolveAccessURL(ctx context.Context, id string) (string, error) {
	ref, err := g.fetch(ctx, OpResolveAccessURL, id)
	if err != nil {
		return "", err
	}
	if ref.SID == "" || ref.AccountSID == "" {
		return "", &UpstreamError{Op: OpResolveAccessURL, Err: errors.New("response missing recording identifiers")}
	}
	return fmt.Sprintf("%s/2010-04-01/Accounts/%s/Recordings/%s.mp3",
		g.mediaBaseURL, url.PathEscape(ref.AccountSID), url.PathEscape(ref.SID)), nil
}

func (g *Gateway) fetch(ctx context.Context, op, id string) (*models.RecordingReference, error) {
	if !validation.IsRecordingSID(id) {
		return nil, ErrInvalidRecordingID
	}

	var rec providerRecording
	path := g.client.accountPath(fmt.Sprintf(recordingResourceFmt, id))
	if err := g.client.getJSON(ctx, op, path, nil, &rec); err != nil {
		return nil, err
	}
	ref := rec.toReference()
	return &ref, nil
}

// recordingPage is one page of the provider's recording list.
type recordingPage struct {
	Recordings []providerRecording `json:"recordings"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
}

// providerRecording is a recording resource as the provider serializes it.
type providerRecording struct {
	SID         string       `json:"sid"`
	AccountSID  string       `json:"account_sid"`
	CallSID     string       `json:"call_sid"`
	Status      string       `json:"status"`
	DateCreated providerTime `json:"date_created"`
	DateUpdated providerTime `json:"date_updated"`
	StartTime   providerTime `json:"start_time"`
	Duration    flexInt      `json:"duration"`
	Channels    int          `json:"channels"`
	Source      string       `json:"source"`
	ErrorCode   flexInt      `json:"error_code"`
	Price       *string      `json:"price"`
	PriceUnit   string       `json:"price_unit"`
	URI         string       `json:"uri"`
}

func (p *providerRecording) toReference() models.RecordingReference {
	return models.RecordingReference{
		SID:         p.SID,
		AccountSID:  p.AccountSID,
		CallSID:     p.CallSID,
		Status:      p.Status,
		DateCreated: p.DateCreated.ptr(),
		DateUpdated: p.DateUpdated.ptr(),
		StartTime:   p.StartTime.ptr(),
		Duration:    p.Duration.nonNegative(),
		Channels:    p.Channels,
		Source:      p.Source,
		ErrorCode:   p.ErrorCode.ptr(),
		Price:       p.Price,
		PriceUnit:   p.PriceUnit,
		URI:         p.URI,
	}
}

// providerTime decodes the provider's RFC 1123 timestamps. Null, empty and
// unparseable values decode as unset.
type providerTime struct {
	t     time.Time
	valid bool
}

func (pt *providerTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil || s == nil || *s == "" {
		return nil
	}
	for _, layout := range []string{providerTimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, *s); err == nil {
			pt.t, pt.valid = t.UTC(), true
			return nil
		}
	}
	return nil
}

func (pt providerTime) ptr() *time.Time {
	if !pt.valid {
		return nil
	}
	t := pt.t
	return &t
}

// flexInt decodes an integer sent either as a JSON number or a numeric
// string. Null and non-integer values decode as unset.
type flexInt struct {
	n     int
	valid bool
}

func (fi *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	n, err := strconv.Atoi(string(data))
	if err != nil {
		return nil
	}
	fi.n, fi.valid = n, true
	return nil
}

// nonNegative is ptr for quantities where the provider uses -1 as "not yet known".
func (fi flexInt) nonNegative() *int {
	if fi.valid && fi.n < 0 {
		return nil
	}
	return fi.ptr()
}

func (fi flexInt) ptr() *int {
	if !fi.valid {
		return nil
	}
	n := fi.n
	return &n
}
