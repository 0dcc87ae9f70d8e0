// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"database/sql"
	"time"

	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/bootstrap"
	"github.com/Cynary/unifi-monitoring/internal/classify"
	"github.com/Cynary/unifi-monitoring/internal/feed/text"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/session"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// TextSupervisor runs the state machine of spec §4.F for a source
// carried over the persistent text-frame transport (network, host).
type TextSupervisor struct {
	Source       model.Source
	FeedURL      string
	BootstrapURL string
	Auth         *session.Authenticator
	Store        *store.Store
	Classifier   *classify.Classifier
	Normalize    func(json.RawMessage) (*model.Event, error)

	fetcher *bootstrap.Fetcher
}

// Serve implements suture.Service. It runs until ctx is cancelled.
func (s *TextSupervisor) Serve(ctx context.Context) error {
	if s.fetcher == nil {
		s.fetcher = bootstrap.New(s.BootstrapURL)
	}

	b := newBackoff()
	cur := stateInit
	var lastUpdateID string
	var client *text.Client

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
			cursor, err := s.Store.GetCursor(s.Source)
			switch {
			case err == sql.ErrNoRows:
				next = stateBootstrap
			case err != nil:
				logging.Error().Err(err).Str("source", string(s.Source)).Msg("ingest: cursor lookup failed")
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
				logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: attach failed")
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
				logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: stream ended")
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

		setState(s.Source, cur, next)
		cur = next
	}
}

func (s *TextSupervisor) attach(ctx context.Context, lastUpdateID string) (*text.Client, error) {
	creds, err := s.Auth.Fresh(ctx)
	if err != nil {
		return nil, err
	}
	client, err := text.Dial(ctx, s.FeedURL, creds, lastUpdateID)
	if err != nil && apperrors.IsAuthFailed(err) {
		if _, rerr := s.Auth.Refresh(ctx); rerr != nil {
			return nil, rerr
		}
		creds, err = s.Auth.Fresh(ctx)
		if err != nil {
			return nil, err
		}
		client, err = text.Dial(ctx, s.FeedURL, creds, lastUpdateID)
	}
	return client, err
}

// stream drains client's frames until the channel closes, returning
// whether at least one event was persisted (spec §4.F backoff reset).
func (s *TextSupervisor) stream(ctx context.Context, client *text.Client, lastUpdateID *string) bool {
	persisted := false
	for {
		select {
		case frame, ok := <-client.Frames():
			if !ok {
				return persisted
			}
			evt, err := s.Normalize(frame.Raw)
			if err != nil {
				logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: dropping malformed frame")
				continue
			}
			result, stored, err := s.Classifier.Classify(evt)
			if err != nil {
				logging.Error().Err(err).Str("source", string(s.Source)).Msg("ingest: classify failed")
				continue
			}
			if err := s.Store.AdvanceCursor(s.Source, stored.ID); err != nil {
				logging.Error().Err(err).Str("source", string(s.Source)).Msg("ingest: advance_cursor failed")
				continue
			}
			*lastUpdateID = stored.ID
			if result == model.Inserted {
				persisted = true
			}
		case <-ctx.Done():
			_ = client.Close()
			return persisted
		}
	}
}

func (s *TextSupervisor) runBootstrap(ctx context.Context, lastUpdateID *string) state {
	creds, err := s.Auth.Fresh(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: bootstrap auth failed")
		return nextAfterAttachError(err)
	}

	snap, err := s.fetcher.Fetch(ctx, creds)
	if err != nil {
		logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: bootstrap fetch failed")
		return nextAfterAttachError(err)
	}

	for _, raw := range snap.Events {
		evt, err := s.Normalize(raw)
		if err != nil {
			logging.Warn().Err(err).Str("source", string(s.Source)).Msg("ingest: dropping malformed bootstrap event")
			continue
		}
		if _, _, err := s.Classifier.Classify(evt); err != nil {
			logging.Error().Err(err).Str("source", string(s.Source)).Msg("ingest: bootstrap classify failed")
		}
	}

	if snap.LastUpdateID != "" {
		if err := s.Store.AdvanceCursor(s.Source, snap.LastUpdateID); err != nil {
			logging.Error().Err(err).Str("source", string(s.Source)).Msg("ingest: bootstrap advance_cursor failed")
		}
		*lastUpdateID = snap.LastUpdateID
	}

	return stateAttach
}
