// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package classify

import (
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/metrics"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// Classifier stamps normalised events into the Store and wakes the
// notification dispatcher whenever a freshly inserted event is bound
// for notification (spec §4.G, §4.H).
type Classifier struct {
	store *store.Store
	wake  chan struct{}
}

// New returns a Classifier writing to st. wake, if non-nil, receives
// a non-blocking signal after every Inserted+notify event so the
// dispatcher does not have to poll on its idle timer alone.
func New(st *store.Store, wake chan struct{}) *Classifier {
	return &Classifier{store: st, wake: wake}
}

// Classify inserts evt (deduplicating by id) and reports the outcome.
func (c *Classifier) Classify(evt *model.Event) (model.InsertResult, *model.Event, error) {
	result, stored, err := c.store.InsertEvent(evt)
	if err != nil {
		return 0, nil, err
	}

	switch result {
	case model.Inserted:
		metrics.EventsIngested.WithLabelValues(string(stored.Source)).Inc()
		if stored.Classification == model.ClassificationNotify {
			c.signalWake()
		}
	case model.Duplicate:
		metrics.EventsDuplicate.WithLabelValues(string(stored.Source)).Inc()
	}

	logging.Debug().
		Str("event_id", stored.ID).
		Str("event_type", stored.EventType).
		Str("classification", string(stored.Classification)).
		Bool("duplicate", result == model.Duplicate).
		Msg("classify: event processed")

	return result, stored, nil
}

func (c *Classifier) signalWake() {
	if c.wake == nil {
		return
	}
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
