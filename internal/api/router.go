// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/metrics"
)

// correlationID stamps every request with a UUID so a single request
// carries one id across every log line it produces (internal/logging.Ctx).
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Correlation-Id", id)
		ctx := logging.ContextWithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()

	r.Use(correlationID)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(300, time.Minute))

		r.Get("/events", s.handleListEvents)
		r.Get("/events/count", s.handleCountEvents)
		r.Get("/events/{id}", s.handleGetEvent)
		r.Get("/event-types", s.handleEventTypeSummaries)

		r.Get("/rules", s.handleListRules)
		r.Put("/rules/{eventType}", s.handleSetRule)
		r.Delete("/rules/{eventType}", s.handleDeleteRule)

		r.Get("/notify/status", s.handleNotifyStatus)
		r.Post("/notify/test", s.handleNotifyTest)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/status", s.handleStatus)
	})

	return r
}
