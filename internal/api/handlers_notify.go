// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/model"
)

type notifyStatusResponse struct {
	Pending      int           `json:"pending"`
	DeadLettered int           `json:"dead_lettered"`
	MaxRetries   int           `json:"max_retries"`
	Recent       []model.Event `json:"recent"`
}

// handleNotifyStatus answers the "notification status + last-N log"
// read endpoint (spec §6). There is no separate delivery log table
// (spec §9: outbox is a query, not a second table), so "recent" is
// the newest notify-classified events, delivered or not.
func (s *Server) handleNotifyStatus(w http.ResponseWriter, r *http.Request) {
	n := 20
	if v, err := strconv.Atoi(r.URL.Query().Get("n")); err == nil && v > 0 {
		n = v
	}

	pending, err := s.Store.PendingNotifications(s.MaxRetries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	deadLettered, err := s.Store.DeadLetterCount(s.MaxRetries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	recent, err := s.Store.QueryEvents(
		model.EventFilter{Classifications: []model.Classification{model.ClassificationNotify}}, n, 0,
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, notifyStatusResponse{
		Pending:      len(pending),
		DeadLettered: deadLettered,
		MaxRetries:   s.MaxRetries,
		Recent:       recent,
	})
}

type testSendRequest struct {
	EventID string `json:"event_id"`
}

// handleNotifyTest re-sends a specific event through the same Sender
// the dispatcher uses, without touching its stored notified/attempts
// state, so operators can verify chat delivery independently.
func (s *Server) handleNotifyTest(w http.ResponseWriter, r *http.Request) {
	var req testSendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	evt, err := s.Store.GetEvent(req.EventID)
	if err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}

	if err := s.Sender.Send(r.Context(), evt); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_id": evt.ID, "status": "sent"})
}
