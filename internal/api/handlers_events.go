// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Cynary/unifi-monitoring/internal/model"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	limit, offset := paginationFromQuery(r)

	events, err := s.Store.QueryEvents(filter, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleCountEvents(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	count, err := s.Store.CountEvents(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	evt, err := s.Store.GetEvent(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, evt)
}

func (s *Server) handleEventTypeSummaries(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.Store.EventTypeSummaries()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summaries)
}

func filterFromQuery(r *http.Request) model.EventFilter {
	q := r.URL.Query()

	var classes []model.Classification
	for _, c := range q["classification"] {
		classes = append(classes, model.Classification(c))
	}

	return model.EventFilter{
		Classifications: classes,
		EventTypes:      q["event_type"],
		Search:          q.Get("search"),
	}
}

func paginationFromQuery(r *http.Request) (limit, offset int) {
	q := r.URL.Query()
	limit = defaultLimit
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}
