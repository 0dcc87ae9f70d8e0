// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session implements the appliance session authenticator
// (spec §4.B): it harvests an anti-CSRF token from the login page,
// exchanges credentials for a session cookie, and exposes a
// single-flight Fresh() that downstream transports call to obtain
// current credentials, re-authenticating lazily on 401.
package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/logging"
)

const (
	csrfHeaderName = "X-Csrf-Token"
	loginPath      = "/api/auth/login"
)

// Credentials is what downstream transports attach to their requests.
type Credentials struct {
	Cookies []*http.Cookie
	CSRF    string
}

// Authenticator obtains and refreshes appliance session credentials.
type Authenticator struct {
	baseURL  string
	username string
	password string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[*Credentials]

	mu     sync.Mutex
	fresh  *Credentials
	refreshing chan struct{} // non-nil while a refresh is in flight
}

// New creates an Authenticator for the appliance at baseURL (e.g.
// "https://192.168.1.1").
func New(baseURL, username, password string) *Authenticator {
	jar, _ := cookiejar.New(nil)
	a := &Authenticator{
		baseURL:  baseURL,
		username: username,
		password: password,
		client: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}

	settings := gobreaker.Settings{
		Name:        "session-login",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	}
	a.breaker = gobreaker.NewCircuitBreaker[*Credentials](settings)

	return a
}

// Fresh returns the current credentials, authenticating for the
// first time if necessary. It does not force a refresh; call
// Refresh after a 401 from a downstream component.
func (a *Authenticator) Fresh(ctx context.Context) (*Credentials, error) {
	a.mu.Lock()
	creds := a.fresh
	a.mu.Unlock()
	if creds != nil {
		return creds, nil
	}
	return a.Refresh(ctx)
}

// Refresh re-authenticates, serialized so only one refresh runs at a
// time: concurrent callers during an in-flight refresh wait for it
// and receive its result rather than each performing their own login.
func (a *Authenticator) Refresh(ctx context.Context) (*Credentials, error) {
	a.mu.Lock()
	if a.refreshing != nil {
		wait := a.refreshing
		a.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		a.mu.Lock()
		creds := a.fresh
		a.mu.Unlock()
		if creds == nil {
			return nil, apperrors.AuthFailed("refresh by another caller did not succeed")
		}
		return creds, nil
	}

	done := make(chan struct{})
	a.refreshing = done
	a.mu.Unlock()

	creds, err := a.breaker.Execute(func() (*Credentials, error) {
		return a.login(ctx)
	})

	a.mu.Lock()
	if err == nil {
		a.fresh = creds
	}
	a.refreshing = nil
	a.mu.Unlock()
	close(done)

	if err != nil {
		return nil, err
	}
	return creds, nil
}

// login performs the GET-for-CSRF-token then POST-credentials
// sequence from spec §4.B.
func (a *Authenticator) login(ctx context.Context) (*Credentials, error) {
	csrf, err := a.harvestCSRF(ctx)
	if err != nil {
		return nil, err
	}

	body := fmt.Sprintf(`{"username":%q,"password":%q}`, a.username, a.password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+loginPath, strings.NewReader(body))
	if err != nil {
		return nil, apperrors.TransientNetwork(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if csrf != "" {
		req.Header.Set(csrfHeaderName, csrf)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, apperrors.TransientNetwork(err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, apperrors.AuthFailed(fmt.Sprintf("login rejected with status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, apperrors.TransientRemote(fmt.Errorf("login status %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return nil, apperrors.AuthFailed(fmt.Sprintf("login failed with status %d", resp.StatusCode))
	}

	newCSRF := resp.Header.Get(csrfHeaderName)
	if newCSRF == "" {
		newCSRF = csrf
	}

	logging.Info().Str("component", "session").Msg("appliance session established")

	return &Credentials{
		Cookies: resp.Cookies(),
		CSRF:    newCSRF,
	}, nil
}

// harvestCSRF GETs the appliance root to pick up the anti-CSRF token
// exposed on the response headers, per spec §4.B.
func (a *Authenticator) harvestCSRF(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/", nil)
	if err != nil {
		return "", apperrors.TransientNetwork(err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", apperrors.TransientNetwork(err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return "", apperrors.TransientRemote(fmt.Errorf("csrf harvest status %d", resp.StatusCode))
	}

	return resp.Header.Get(csrfHeaderName), nil
}
