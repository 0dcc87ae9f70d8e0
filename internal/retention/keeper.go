// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package retention implements the Retention Keeper (spec §4.I): a
// service that runs on startup and on a timer, pruning the oldest
// events once the store's on-disk size exceeds its budget.
package retention

import (
	"context"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/config"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/metrics"
	"github.com/Cynary/unifi-monitoring/internal/store"
)

// Keeper sweeps the store on startup and every config.RetentionCheckInterval.
type Keeper struct {
	Store       *store.Store
	BudgetBytes int64
	MaxAttempts int
}

// Serve implements suture.Service.
func (k *Keeper) Serve(ctx context.Context) error {
	ticker := time.NewTicker(config.RetentionCheckInterval)
	defer ticker.Stop()

	k.sweep()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			k.sweep()
		}
	}
}

func (k *Keeper) sweep() {
	n, err := k.Store.PruneUntilBelow(k.BudgetBytes, k.MaxAttempts)
	if err != nil {
		logging.Error().Err(err).Msg("retention: sweep failed")
		return
	}
	if n > 0 {
		metrics.RetentionSweeps.Inc()
		logging.Info().Int("deleted", n).Msg("retention: pruned events to stay within budget")
	}

	if size, err := k.Store.SizeBytes(); err == nil {
		metrics.StoreSizeBytes.Set(float64(size))
	}
}
