// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/config"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/metrics"
	"github.com/Cynary/unifi-monitoring/internal/model"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// Sender delivers one rendered event notification.
type Sender interface {
	Send(ctx context.Context, evt *model.Event) error
}

// Dispatcher is the single long-running notification worker (spec
// §4.H). It wakes on Wake (raised by the classifier on a fresh
// notify-classified insert) or its idle timer, whichever comes first.
type Dispatcher struct {
	Store      *store.Store
	Sender     Sender
	MaxRetries int
	Wake       chan struct{}
}

// Serve implements suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	timer := time.NewTimer(config.DispatcherIdleInterval)
	defer timer.Stop()

	for {
		d.sweep(ctx)

		timer.Reset(config.DispatcherIdleInterval)
		select {
		case <-ctx.Done():
			return nil
		case <-d.Wake:
		case <-timer.C:
		}
	}
}

// sweep reads the pending set once and attempts delivery in order,
// retrying a failing event in place before moving to the next one
// (spec §4.H steps 1-4).
func (d *Dispatcher) sweep(ctx context.Context) {
	pending, err := d.Store.PendingNotifications(d.MaxRetries)
	if err != nil {
		logging.Error().Err(err).Msg("notify: failed to read pending set")
		return
	}

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		d.deliver(ctx, &pending[i])
	}
}

func (d *Dispatcher) deliver(ctx context.Context, evt *model.Event) {
	for {
		if ctx.Err() != nil {
			return
		}

		metrics.NotifyAttempts.Inc()
		err := d.Sender.Send(ctx, evt)
		if err == nil {
			metrics.NotifySuccesses.Inc()
			if merr := d.Store.MarkNotified(evt.ID); merr != nil {
				logging.Error().Err(merr).Str("event_id", evt.ID).Msg("notify: mark_notified failed")
			}
			return
		}

		attempts, berr := d.Store.BumpAttempts(evt.ID)
		if berr != nil {
			logging.Error().Err(berr).Str("event_id", evt.ID).Msg("notify: bump_attempts failed")
			return
		}

		if attempts >= d.MaxRetries {
			metrics.NotifyDeadLettered.Inc()
			logging.Error().Err(err).Str("event_id", evt.ID).Int("attempts", attempts).
				Msg("notify: event dead-lettered after exhausting retries")
			return
		}

		delay := retryDelay(attempts)
		logging.Warn().Err(err).Str("event_id", evt.ID).Int("attempts", attempts).Dur("retry_in", delay).
			Msg("notify: send failed, retrying")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
		evt.NotifyAttempts = attempts
	}
}

// retryDelay implements spec §4.H step 4: min(cap, base·2^(attempts-1))
// with jitter.
func retryDelay(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	raw := float64(config.BackoffBase) * math.Pow(2, float64(attempts-1))
	capped := math.Min(raw, float64(config.BackoffCap))
	jitter := capped * (0.75 + rand.Float64()*0.5) // +/-25%
	return time.Duration(jitter)
}
