// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"testing"
	"time"

	"github.com/Cynary/unifi-monitoring/internal/config"
)

func TestNewBackoffFirstIntervalNearBase(t *testing.T) {
	b := newBackoff()
	d := b.NextBackOff()
	lower := config.BackoffBase - config.BackoffBase/4
	upper := config.BackoffBase + config.BackoffBase/4
	if d < lower || d > upper {
		t.Fatalf("first backoff %v outside expected jitter band [%v, %v]", d, lower, upper)
	}
}

func TestNewBackoffCapsAtMaxInterval(t *testing.T) {
	b := newBackoff()
	var last time.Duration
	for i := 0; i < 20; i++ {
		last = b.NextBackOff()
	}
	upper := config.BackoffCap + config.BackoffCap/4
	if last > upper {
		t.Fatalf("backoff grew past cap: %v > %v", last, upper)
	}
}
