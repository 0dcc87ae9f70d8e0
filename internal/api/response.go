// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api exposes the read/write HTTP surface over the Store
// (spec §6): event queries, rule management, notification status, and
// Prometheus metrics.
package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/logging"
)

// response is the envelope every handler writes.
type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Success: status < 400, Data: data}); err != nil {
		logging.Warn().Err(err).Msg("api: failed writing response body")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Success: false, Error: msg}); err != nil {
		logging.Warn().Err(err).Msg("api: failed writing error body")
	}
}
