// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main is the entry point for the UniFi Monitor server.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: load settings from environment variables and an
//     optional config.yaml (Koanf v2).
//  2. Logging: configure the global zerolog sink.
//  3. Store: open the single-file SQLite event store.
//  4. Session Authenticator: prepare appliance login, performed lazily
//     on first use by each ingestion supervisor.
//  5. Ingestion Supervisors: one per source (network, host, video),
//     each running the bootstrap/attach/stream/backoff state machine.
//  6. Notification Dispatcher: delivers notify-classified events to
//     the configured chat service.
//  7. Retention Keeper: prunes the store to stay within its size budget.
//  8. HTTP API: read/management endpoints and the Prometheus scrape.
//
// All of the above run under one suture supervisor tree (internal
// /supervisortree) so a panic or returned error in any one service
// restarts that service without taking down the others. SIGINT and
// SIGTERM trigger a graceful shutdown: the tree's context is
// cancelled, every supervisor stops reading from its source, the
// dispatcher finishes any send already in flight, and the Store is
// closed last (spec §5).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Cynary/unifi-monitoring/internal/api"
	"github.com/Cynary/unifi-monitoring/internal/classify"
	"github.com/Cynary/unifi-monitoring/internal/config"
	"github.com/Cynary/unifi-monitoring/internal/ingest"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/notify"
	"github.com/Cynary/unifi-monitoring/internal/retention"
	"github.com/Cynary/unifi-monitoring/internal/session"
	"github.com/Cynary/unifi-monitoring/internal/store"
	"github.com/Cynary/unifi-monitoring/internal/supervisortree"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("main: failed to load configuration")
		return 1
	}

	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	logging.Info().Str("appliance", cfg.Appliance.Host).Msg("main: configuration loaded")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logging.Error().Err(err).Str("path", cfg.Database.Path).Msg("main: failed to open store")
		return 1
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logging.Error().Err(cerr).Msg("main: error closing store")
		}
	}()

	auth := session.New(cfg.Appliance.Host, cfg.Appliance.Username, cfg.Appliance.Password)
	wake := make(chan struct{}, 1)
	classifier := classify.New(st, wake)

	networkSup := &ingest.TextSupervisor{
		Source:       model.SourceNetwork,
		FeedURL:      cfg.Appliance.Host + cfg.Appliance.NetworkFeedPath,
		BootstrapURL: cfg.Appliance.Host + cfg.Appliance.NetworkBootstrapPath,
		Auth:         auth,
		Store:        st,
		Classifier:   classifier,
		Normalize:    classify.NormalizeNetwork,
	}
	hostSup := &ingest.TextSupervisor{
		Source:       model.SourceHost,
		FeedURL:      cfg.Appliance.Host + cfg.Appliance.HostFeedPath,
		BootstrapURL: cfg.Appliance.Host + cfg.Appliance.HostBootstrapPath,
		Auth:         auth,
		Store:        st,
		Classifier:   classifier,
		Normalize:    classify.NormalizeHost,
	}
	videoSup := &ingest.VideoSupervisor{
		FeedURL:      cfg.Appliance.Host + cfg.Appliance.VideoFeedPath,
		BootstrapURL: cfg.Appliance.Host + cfg.Appliance.VideoBootstrapPath,
		Auth:         auth,
		Store:        st,
		Classifier:   classifier,
	}
	chatClient := notify.NewChatClient(cfg.Chat)
	dispatcher := &notify.Dispatcher{
		Store:      st,
		Sender:     chatClient,
		MaxRetries: cfg.Notify.MaxRetries,
		Wake:       wake,
	}

	keeper := &retention.Keeper{
		Store:       st,
		BudgetBytes: int64(cfg.Database.SizeBudgetMB) * 1024 * 1024,
		MaxAttempts: cfg.Notify.MaxRetries,
	}

	apiServer := &api.Server{
		ListenAddr: cfg.Server.ListenAddr,
		Store:      st,
		Sender:     chatClient,
		MaxRetries: cfg.Notify.MaxRetries,
	}

	tree := supervisortree.New(logging.NewSlogLogger(), supervisortree.DefaultConfig())
	tree.AddIngest(networkSup)
	tree.AddIngest(hostSup)
	tree.AddIngest(videoSup)
	tree.AddNotify(dispatcher)
	tree.AddRetention(keeper)
	tree.AddAPI(apiServer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("main: starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("main: supervisor tree exited with error")
		return 1
	}

	logging.Info().Msg("main: shutdown complete")
	return 0
}
