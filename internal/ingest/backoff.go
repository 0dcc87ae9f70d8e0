// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"github.com/cenkalti/backoff/v4"

	"github.com/Cynary/unifi-monitoring/internal/config"
)

// newBackoff builds the exponential-with-jitter policy spec §4.F
// requires: base 1s, doubling, capped at 60s, ±25% jitter, and no
// elapsed-time ceiling (the supervisor retries for the life of the
// process).
func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = config.BackoffBase
	b.Multiplier = 2
	b.MaxInterval = config.BackoffCap
	b.RandomizationFactor = 0.25
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}
