// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/bootstrap"
	"github.com/Cynary/unifi-monitoring/internal/classify"
	"github.com/Cynary/unifi-monitoring/internal/feed/binary"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/session"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// VideoSupervisor runs the state machine of spec §4.F for the video
// source, carried over the framed/compressed binary transport.
type VideoSupervisor struct {
	FeedURL      string
	BootstrapURL string
	Auth         *session.Authenticator
	Store        *store.Store
	Classifier   *classify.Classifier

	fetcher *bootstrap.Fetcher
}

// Serve implements suture.Service. It runs until ctx is cancelled.
func (s *VideoSupervisor) Serve(ctx context.Context) error {
	if s.fetcher == nil {
		s.fetcher = bootstrap.New(s.BootstrapURL)
	}

	b := newBackoff()
	cur := stateInit
	var lastUpdateID string
	var client *binary.Client

	for {
		if ctx.Err() != nil {
			if client != nil {
				_ = client.Close()
			}
			return nil
		}

		next := cur
		switch cur {
		case stateInit:
			cursor, err := s.Store.GetCursor(model.SourceVideo)
			switch {
			case err == sql.ErrNoRows:
				next = stateBootstrap
			case err != nil:
				logging.Error().Err(err).Str("source", "video").Msg("ingest: cursor lookup failed")
				next = stateBackoff
			default:
				lastUpdateID = cursor.LastUpdateID
				next = stateAttach
			}

		case stateBootstrap:
			next = s.runBootstrap(ctx, &lastUpdateID)

		case stateAttach:
			var err error
			client, err = s.attach(ctx, lastUpdateID)
			if err != nil {
				logging.Warn().Err(err).Str("source", "video").Msg("ingest: attach failed")
				next = nextAfterAttachError(err)
			} else {
				next = stateStreaming
			}

		case stateStreaming:
			persisted := s.stream(ctx, client, &lastUpdateID)
			err := client.Err()
			client = nil
			if persisted {
				b.Reset()
			}
			if err == nil {
				next = stateBootstrap
			} else {
				logging.Warn().Err(err).Str("source", "video").Msg("ingest: stream ended")
				next = nextAfterStreamError(err)
			}

		case stateBackoff:
			d := b.NextBackOff()
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil
			}
			next = stateBootstrap
		}

		setState(model.SourceVideo, cur, next)
		cur = next
	}
}

func (s *VideoSupervisor) attach(ctx context.Context, lastUpdateID string) (*binary.Client, error) {
	creds, err := s.Auth.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	client, err := binary.Dial(ctx, s.FeedURL, creds, lastUpdateID)
	if err != nil && apperrors.IsAuthFailed(err) {
		if _, rerr := s.Auth.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		creds, err = s.Auth.Fresh(ctx)
		if err != nil {
			return nil, err
		}
		client, err = binary.Dial(ctx, s.FeedURL, creds, lastUpdateID)
	}
	return client, err
}

// stream drains client's messages until the channel closes, returning
// whether at least one event was persisted (spec §4.F backoff reset).
func (s *VideoSupervisor) stream(ctx context.Context, client *binary.Client, lastUpdateID *string) bool {
	persisted := false
	for {
		select {
		case msg, ok := <-client.Messages():
			if !ok {
				return persisted
			}
			evt, err := classify.NormalizeVideo(msg)
			if err != nil {
				logging.Warn().Err(err).Str("source", "video").Msg("ingest: dropping malformed message")
				continue
			}
			result, _, err := s.Classifier.Classify(evt)
			if err != nil {
				logging.Error().Err(err).Str("source", "video").Msg("ingest: classify failed")
				continue
			}
			if msg.Action.UpdateID != "" {
				if err := s.Store.AdvanceCursor(model.SourceVideo, msg.Action.UpdateID); err != nil {
					logging.Error().Err(err).Str("source", "video").Msg("ingest: advance_cursor failed")
					continue
				}
				*lastUpdateID = msg.Action.UpdateID
			}
			if result == model.Inserted {
				persisted = true
			}
		case <-ctx.Done():
			_ = client.Close()
			return persisted
		}
	}
}

func (s *VideoSupervisor) runBootstrap(ctx context.Context, lastUpdateID *string) state {
	creds, err := s.Auth.Fresh(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("source", "video").Msg("ingest: bootstrap auth failed")
		return nextAfterAttachError(err)
	}

	snap, err := s.fetcher.Fetch(ctx, creds)
	if err != nil {
		logging.Warn().Err(err).Str("source", "video").Msg("ingest: bootstrap fetch failed")
		return nextAfterAttachError(err)
	}

	for _, raw := range snap.Events {
		evt, err := classify.NormalizeVideoBootstrap(raw)
		if err != nil {
			logging.Warn().Err(err).Str("source", "video").Msg("ingest: dropping malformed bootstrap event")
			continue
		}
		if _, _, err := s.Classifier.Classify(evt); err != nil {
			logging.Error().Err(err).Str("source", "video").Msg("ingest: bootstrap classify failed")
		}
	}

	if snap.LastUpdateID != "" {
		if err := s.Store.AdvanceCursor(model.SourceVideo, snap.LastUpdateID); err != nil {
			logging.Error().Err(err).Str("source", "video").Msg("ingest: bootstrap advance_cursor failed")
		}
		*lastUpdateID = snap.LastUpdateID
	}

	return stateAttach
}
