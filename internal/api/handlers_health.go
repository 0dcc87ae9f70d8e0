// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/metrics"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

// statusResponse is the only user-visible surface for ingestion
// failures (spec §7): per-source supervisor state plus the
// dispatcher's dead-letter count.
type statusResponse struct {
	Supervisors  map[string]string `json:"supervisors"`
	DeadLettered int               `json:"dead_lettered"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	deadLettered, err := s.Store.DeadLetterCount(s.MaxRetries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Supervisors:  metrics.SupervisorStates(),
		DeadLettered: deadLettered,
	})
}

type dashboardResponse struct {
	TotalEvents   int                           `json:"total_events"`
	ByClass       map[model.Classification]int  `json:"by_classification"`
	PendingNotify int                            `json:"pending_notify"`
	DeadLettered  int                            `json:"dead_lettered"`
	StoreSizeMB   float64                        `json:"store_size_mb"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	resp := dashboardResponse{ByClass: map[model.Classification]int{}}

	total, err := s.Store.CountEvents(model.EventFilter{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.TotalEvents = total

	for _, c := range []model.Classification{
		model.ClassificationUnclassified, model.ClassificationNotify,
		model.ClassificationIgnored, model.ClassificationSuppressed,
	} {
		count, err := s.Store.CountEvents(model.EventFilter{Classifications: []model.Classification{c}})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.ByClass[c] = count
	}
	pending, err := s.Store.PendingNotifications(s.MaxRetries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.PendingNotify = len(pending)

	deadLettered, err := s.Store.DeadLetterCount(s.MaxRetries)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.DeadLettered = deadLettered

	size, err := s.Store.SizeBytes()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp.StoreSizeMB = float64(size) / (1024 * 1024)

	writeJSON(w, http.StatusOK, resp)
}
