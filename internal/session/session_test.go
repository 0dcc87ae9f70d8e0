// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFreshAuthenticatesOnce(t *testing.T) {
	var logins atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set(csrfHeaderName, "csrf-root")
			w.WriteHeader(http.StatusOK)
		case loginPath:
			logins.Add(1)
			w.Header().Set(csrfHeaderName, "csrf-session")
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	auth := New(srv.URL, "admin", "secret")

	creds, err := auth.Fresh(context.Background())
	if err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if creds.CSRF != "csrf-session" {
		t.Fatalf("csrf = %q, want csrf-session", creds.CSRF)
	}

	if _, err := auth.Fresh(context.Background()); err != nil {
		t.Fatalf("second fresh: %v", err)
	}

	if got := logins.Load(); got != 1 {
		t.Fatalf("logins = %d, want 1 (Fresh should not re-login when cached)", got)
	}
}

func TestRefreshOn401Reauthenticates(t *testing.T) {
	var logins atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.WriteHeader(http.StatusOK)
		case loginPath:
			logins.Add(1)
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc"})
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	auth := New(srv.URL, "admin", "secret")

	if _, err := auth.Fresh(context.Background()); err != nil {
		t.Fatalf("fresh: %v", err)
	}
	if _, err := auth.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if got := logins.Load(); got != 2 {
		t.Fatalf("logins = %d, want 2", got)
	}
}

func TestLoginPersistentAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == loginPath {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	auth := New(srv.URL, "admin", "wrong")

	if _, err := auth.Fresh(context.Background()); err == nil {
		t.Fatalf("expected AuthFailed error")
	}
}
