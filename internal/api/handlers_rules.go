// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Cynary/unifi-monitoring/internal/model"
)

func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := s.Store.ListRules()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rules)
}

type setRuleRequest struct {
	Classification model.Classification `json:"classification"`
}

func (s *Server) handleSetRule(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "eventType")

	var req setRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !req.Classification.Valid() {
		writeError(w, http.StatusBadRequest, "invalid classification")
		return
	}

	if err := s.Store.SetRule(eventType, req.Classification); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_type": eventType})
}

func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	eventType := chi.URLParam(r, "eventType")
	if err := s.Store.DeleteRule(eventType); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_type": eventType})
}
