// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package apperrors declares the error taxonomy described in spec §7
// and the helpers the supervisors use to decide between local
// recovery (backoff, re-bootstrap, re-auth) and a fatal exit.
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel categories. Concrete errors wrap one of these via %w so
// callers can classify with errors.Is.
var (
	// ErrConfig marks a fail-fast configuration error.
	ErrConfig = errors.New("config error")

	// ErrAuthFailed marks a persistent 401/403 from the appliance.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrCursorUnknown marks a feed rejecting a resume cursor.
	ErrCursorUnknown = errors.New("cursor unknown to feed")

	// ErrTransientNetwork marks a recoverable network-level failure
	// (dial timeout, connection reset, disconnect).
	ErrTransientNetwork = errors.New("transient network error")

	// ErrTransientRemote marks a recoverable remote-side failure
	// (5xx, remote timeout).
	ErrTransientRemote = errors.New("transient remote error")

	// ErrProtocolViolation marks an undecodable or malformed frame.
	ErrProtocolViolation = errors.New("protocol violation")

	// ErrStore marks a writable-database error. Only fatal if the
	// database itself could not be opened.
	ErrStore = errors.New("store error")

	// ErrNotifyFailed marks a single failed notify attempt; recovered
	// by retry up to the configured maximum.
	ErrNotifyFailed = errors.New("notify failed")
)

// ConfigError wraps ErrConfig with the offending field.
func ConfigError(field, reason string) error {
	return fmt.Errorf("%s: %s: %w", field, reason, ErrConfig)
}

// AuthFailed wraps ErrAuthFailed with context.
func AuthFailed(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrAuthFailed)
}

// CursorUnknown wraps ErrCursorUnknown with the rejected cursor.
func CursorUnknown(source, cursor string) error {
	return fmt.Errorf("source %s rejected cursor %q: %w", source, cursor, ErrCursorUnknown)
}

// TransientNetwork wraps ErrTransientNetwork with the underlying cause.
func TransientNetwork(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransientNetwork, cause)
}

// TransientRemote wraps ErrTransientRemote with the underlying cause.
func TransientRemote(cause error) error {
	return fmt.Errorf("%w: %v", ErrTransientRemote, cause)
}

// ProtocolViolation wraps ErrProtocolViolation with a description.
func ProtocolViolation(reason string) error {
	return fmt.Errorf("%s: %w", reason, ErrProtocolViolation)
}

// Store wraps ErrStore with the underlying cause.
func Store(op string, cause error) error {
	return fmt.Errorf("store: %s: %w: %v", op, ErrStore, cause)
}

// NotifyFailed wraps ErrNotifyFailed with the attempt count.
func NotifyFailed(attempt int, cause error) error {
	return fmt.Errorf("attempt %d: %w: %v", attempt, ErrNotifyFailed, cause)
}

// IsTransient reports whether err should be recovered with backoff
// rather than treated as fatal or requiring re-bootstrap/re-auth.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientNetwork) || errors.Is(err, ErrTransientRemote)
}

// IsAuthFailed reports whether err is a persistent auth failure.
func IsAuthFailed(err error) bool {
	return errors.Is(err, ErrAuthFailed)
}

// IsCursorUnknown reports whether err is a rejected-cursor error.
func IsCursorUnknown(err error) bool {
	return errors.Is(err, ErrCursorUnknown)
}

// IsProtocolViolation reports whether err is a malformed-frame error.
func IsProtocolViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}

// IsFatalStore reports whether err wraps ErrStore. It does not tell an
// unopenable database apart from any other store error; every store
// error yields true.
func IsFatalStore(err error) bool {
	return errors.Is(err, ErrStore)
}
