// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootstrap implements the one-shot authenticated HTTP fetch
// of the appliance's current snapshot (spec §4.E): a resume cursor
// plus a list of recent events for the source, used to seed a
// missing cursor or recover from a rejected one.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/session"
)

// Snapshot is the decoded bootstrap document.
type Snapshot struct {
	LastUpdateID string            `json:"lastUpdateId"`
	Events       []json.RawMessage `json:"events"`
}

// Fetcher performs the bootstrap GET for a single source.
type Fetcher struct {
	url    string
	client *http.Client
}

// New creates a Fetcher for the given source bootstrap URL.
func New(url string) *Fetcher {
	return &Fetcher{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch performs the authenticated GET and decodes the snapshot.
func (f *Fetcher) Fetch(ctx context.Context, creds *session.Credentials) (*Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, apperrors.TransientNetwork(err)
	}
	for _, c := range creds.Cookies {
		req.AddCookie(c)
	}
	if creds.CSRF != "" {
		req.Header.Set("X-Csrf-Token", creds.CSRF)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, apperrors.TransientNetwork(err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.AuthFailed(fmt.Sprintf("bootstrap status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, apperrors.TransientRemote(fmt.Errorf("bootstrap status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, apperrors.ProtocolViolation(fmt.Sprintf("bootstrap status %d", resp.StatusCode))
	}

	var snap Snapshot
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&snap); err != nil {
		return nil, apperrors.ProtocolViolation("malformed bootstrap document: " + err.Error())
	}
	return &snap, nil
}
