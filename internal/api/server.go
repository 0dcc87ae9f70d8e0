// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/notify"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// Server is the HTTP API's suture.Service wrapper around http.Server.
type Server struct {
	ListenAddr string
	Store      *store.Store
	Sender     notify.Sender
	MaxRetries int

	startedAt time.Time
	srv       *http.Server
}

// Serve implements suture.Service.
func (s *Server) Serve(ctx context.Context) error {
	s.startedAt = time.Now().UTC()
	s.srv = &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.router(),
	}

	errc := make(chan error, 1)
	go func() { errc <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn().Err(err).Msg("api: graceful shutdown failed")
		}
		return nil
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
