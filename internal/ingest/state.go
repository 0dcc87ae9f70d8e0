// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest implements the per-source Ingestion Supervisor (spec
// §4.F): a state machine that authenticates, streams or bootstraps a
// feed, and hands decoded frames to the Normaliser & Classifier.
package ingest

import (
	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/metrics"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// state is one node of the supervisor's state machine (spec §4.F
// diagram).
type state int

const (
	stateInit state = iota
	stateAttach
	stateBootstrap
	stateStreaming
	stateBackoff
)

func (s state) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAttach:
		return "attach"
	case stateBootstrap:
		return "bootstrap"
	case stateStreaming:
		return "streaming"
	case stateBackoff:
		return "backoff"
	default:
		return "unknown"
	}
}

// setState publishes the supervisor's current state to Prometheus,
// clearing the gauge for whichever state it just left.
func setState(source model.Source, from, to state) {
	if from != to {
		metrics.SupervisorState.WithLabelValues(string(source), from.String()).Set(0)
	}
	metrics.SupervisorState.WithLabelValues(string(source), to.String()).Set(1)
	metrics.SetSupervisorState(string(source), to.String())
}

// nextAfterAttachError decides the state transition for a dial/attach
// failure (spec §4.F: "Attach uses the current cursor...").
func nextAfterAttachError(err error) state {
	switch {
	case apperrors.IsCursorUnknown(err):
		return stateBootstrap
	case apperrors.IsAuthFailed(err):
		return stateAttach
	default:
		return stateBackoff
	}
}

// nextAfterStreamError decides the state transition when a streaming
// connection terminates (spec §4.F: "Backoff ← Streaming on
// disconnect").
func nextAfterStreamError(err error) state {
	switch {
	case apperrors.IsCursorUnknown(err):
		return stateBootstrap
	case apperrors.IsAuthFailed(err):
		return stateAttach
	default:
		return stateBackoff
	}
}
