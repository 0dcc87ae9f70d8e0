// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"testing"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
)

func TestNextAfterAttachError(t *testing.T) {
	cases := []struct {
		err  error
		want state
	}{
		{apperrors.CursorUnknown("network", "bad"), stateBootstrap},
		{apperrors.AuthFailed("401"), stateAttach},
		{apperrors.TransientNetwork(errTest), stateBackoff},
	}
	for _, tc := range cases {
		if got := nextAfterAttachError(tc.err); got != tc.want {
			t.Errorf("nextAfterAttachError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestNextAfterStreamError(t *testing.T) {
	cases := []struct {
		err  error
		want state
	}{
		{apperrors.CursorUnknown("video", "bad"), stateBootstrap},
		{apperrors.AuthFailed("401"), stateAttach},
		{apperrors.TransientRemote(errTest), stateBackoff},
		{apperrors.ProtocolViolation("bad frame"), stateBackoff},
	}
	for _, tc := range cases {
		if got := nextAfterStreamError(tc.err); got != tc.want {
			t.Errorf("nextAfterStreamError(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

var errTest = errPlaceholder{}

type errPlaceholder struct{}

func (errPlaceholder) Error() string { return "placeholder" }
