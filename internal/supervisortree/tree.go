// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package supervisortree wires the per-source ingestion supervisors,
// the notification dispatcher, the retention keeper, and the HTTP API
// into one suture.Supervisor tree so that a crash in one layer does
// not take down the others (spec §5: "Every long-lived task listens
// for a shutdown signal").
package supervisortree

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// Config controls the failure-handling parameters shared by every
// supervisor in the tree.
type Config struct {
	FailureThreshold float64
	FailureDecay     float64
	FailureBackoff   time.Duration
	ShutdownTimeout  time.Duration
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		FailureDecay:     30,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree groups the root supervisor and one child supervisor per
// component layer.
type Tree struct {
	root      *suture.Supervisor
	ingest    *suture.Supervisor
	notify    *suture.Supervisor
	retention *suture.Supervisor
	api       *suture.Supervisor
}

// New builds the tree. logger backs the suture event hook so service
// start/stop/panic events land in the same sink as everything else.
func New(logger *slog.Logger, cfg Config) *Tree {
	handler := &sutureslog.Handler{Logger: logger}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: cfg.FailureThreshold,
		FailureDecay:     cfg.FailureDecay,
		FailureBackoff:   cfg.FailureBackoff,
		Timeout:          cfg.ShutdownTimeout,
	}

	t := &Tree{
		root:      suture.New("unifi-monitor", rootSpec),
		ingest:    suture.New("ingest", childSpec),
		notify:    suture.New("notify", childSpec),
		retention: suture.New("retention", childSpec),
		api:       suture.New("api", childSpec),
	}

	t.root.Add(t.ingest)
	t.root.Add(t.notify)
	t.root.Add(t.retention)
	t.root.Add(t.api)

	return t
}

// AddIngest adds a per-source Ingestion Supervisor (spec §4.F).
func (t *Tree) AddIngest(svc suture.Service) suture.ServiceToken { return t.ingest.Add(svc) }

// AddNotify adds the Notification Dispatcher (spec §4.H).
func (t *Tree) AddNotify(svc suture.Service) suture.ServiceToken { return t.notify.Add(svc) }

// AddRetention adds the Retention Keeper (spec §4.I).
func (t *Tree) AddRetention(svc suture.Service) suture.ServiceToken { return t.retention.Add(svc) }

// AddAPI adds the HTTP API server.
func (t *Tree) AddAPI(svc suture.Service) suture.ServiceToken { return t.api.Add(svc) }

// Serve runs the tree until ctx is cancelled, then waits (bounded by
// each spec's ShutdownTimeout) for every service to stop.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}
