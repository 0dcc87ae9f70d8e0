// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package metrics registers the Prometheus instrumentation exposed on
// the API surface's /metrics endpoint. Carried as an ambient concern
// even though spec.md's Non-goals exclude deep observability features.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifi_monitor_events_ingested_total",
			Help: "Events successfully inserted into the store, by source.",
		},
		[]string{"source"},
	)

	EventsDuplicate = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifi_monitor_events_duplicate_total",
			Help: "Events that hit an existing id on insert, by source.",
		},
		[]string{"source"},
	)

	NotifyAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unifi_monitor_notify_attempts_total",
			Help: "Total notification send attempts made by the dispatcher.",
		},
	)

	NotifySuccesses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unifi_monitor_notify_successes_total",
			Help: "Total notifications confirmed delivered.",
		},
	)

	NotifyDeadLettered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unifi_monitor_notify_dead_lettered_total",
			Help: "Notify events that exhausted their retry budget.",
		},
	)

	StoreSizeBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "unifi_monitor_store_size_bytes",
			Help: "On-disk size of the SQLite database file.",
		},
	)

	RetentionSweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "unifi_monitor_retention_sweeps_total",
			Help: "Retention keeper sweeps that deleted at least one event.",
		},
	)

	SupervisorState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unifi_monitor_supervisor_state",
			Help: "1 if the ingestion supervisor for a source is in the given state.",
		},
		[]string{"source", "state"},
	)
)

var (
	statusMu sync.RWMutex
	status   = map[string]string{}
)

// SetSupervisorState records the ingestion supervisor's current state
// for a source, for the status API (supplementing the Prometheus
// gauge above with a plain in-process read, since the gauge's value
// can only be read back by scraping the registry).
func SetSupervisorState(source, state string) {
	statusMu.Lock()
	defer statusMu.Unlock()
	status[source] = state
}

// SupervisorStates returns a snapshot of the last-reported state per
// source.
func SupervisorStates() map[string]string {
	statusMu.RLock()
	defer statusMu.RUnlock()
	out := make(map[string]string, len(status))
	for k, v := range status {
		out[k] = v
	}
	return out
}

// Registry is the registry the API server exposes via promhttp.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		EventsIngested,
		EventsDuplicate,
		NotifyAttempts,
		NotifySuccesses,
		NotifyDeadLettered,
		StoreSizeBytes,
		RetentionSweeps,
		SupervisorState,
	)
}
