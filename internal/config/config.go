// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config holds all application configuration, loaded from
// environment variables and an optional YAML file (spec §6).
package config

import (
	"fmt"
	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"time"
)

// Config holds every setting enumerated in spec §6.
type Config struct {
	Appliance ApplianceConfig `koanf:"appliance"`
	Chat      ChatConfig      `koanf:"chat"`
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Session   SessionConfig   `koanf:"session"`
	Notify    NotifyConfig    `koanf:"notify"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ApplianceConfig holds how to reach and authenticate to the device.
type ApplianceConfig struct {
	Host     string `koanf:"host"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// Feed paths are appended to Host to form each source's channel
	// and bootstrap URLs (spec §4.C, §4.D, §4.E). Defaults match the
	// appliance's own proxy layout; override for test doubles.
	NetworkFeedPath      string `koanf:"network_feed_path"`
	HostFeedPath         string `koanf:"host_feed_path"`
	VideoFeedPath        string `koanf:"video_feed_path"`
	NetworkBootstrapPath string `koanf:"network_bootstrap_path"`
	HostBootstrapPath    string `koanf:"host_bootstrap_path"`
	VideoBootstrapPath   string `koanf:"video_bootstrap_path"`
}

// ChatConfig holds the external chat-service notification target.
type ChatConfig struct {
	BotToken string `koanf:"bot_token"`
	TargetID string `koanf:"target_id"`
}

// DatabaseConfig holds the single-file SQLite store location and
// retention budget.
type DatabaseConfig struct {
	Path          string `koanf:"path"`
	SizeBudgetMB  int    `koanf:"size_budget_mb"`
}

// ServerConfig holds the HTTP API listen address.
type ServerConfig struct {
	ListenAddr string `koanf:"listen_addr"`
}

// SessionConfig holds appliance session lifetime and related knobs.
type SessionConfig struct {
	ExpiryDays      int `koanf:"expiry_days"`
	InviteExpirySec int `koanf:"invite_expiry_seconds"`
}

// NotifyConfig holds dispatcher tunables.
type NotifyConfig struct {
	MaxRetries int `koanf:"max_retries"`
}

// LoggingConfig holds log output tunables.
type LoggingConfig struct {
	Dir          string `koanf:"dir"`
	SizeBudgetMB int    `koanf:"size_budget_mb"`
	Level        string `koanf:"level"`
	Format       string `koanf:"format"`
}

// Validate enforces the required fields, returning an error that names
// the offending field and wraps apperrors.ErrConfig.
func (c *Config) Validate() error {
	if c.Appliance.Host == "" {
		return fmt.Errorf("appliance.host is required: %w", apperrors.ErrConfig)
	}
	if c.Appliance.Username == "" {
		return fmt.Errorf("appliance.username is required: %w", apperrors.ErrConfig)
	}
	if c.Appliance.Password == "" {
		return fmt.Errorf("appliance.password is required: %w", apperrors.ErrConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required: %w", apperrors.ErrConfig)
	}
	if c.Database.SizeBudgetMB <= 0 {
		return fmt.Errorf("database.size_budget_mb must be positive: %w", apperrors.ErrConfig)
	}
	if c.Notify.MaxRetries <= 0 {
		return fmt.Errorf("notify.max_retries must be positive: %w", apperrors.ErrConfig)
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required: %w", apperrors.ErrConfig)
	}
	return nil
}

// DefaultConfig returns sensible defaults for all optional settings.
func DefaultConfig() *Config {
	return &Config{
		Appliance: ApplianceConfig{
			NetworkFeedPath:      "/proxy/network/wss/events",
			HostFeedPath:         "/proxy/system/wss/events",
			VideoFeedPath:        "/proxy/protect/ws/updates",
			NetworkBootstrapPath: "/proxy/network/api/events/recent",
			HostBootstrapPath:    "/proxy/system/api/events/recent",
			VideoBootstrapPath:   "/proxy/protect/api/events/recent",
		},
		Database: DatabaseConfig{
			Path:         "/data/unifi-monitor.db",
			SizeBudgetMB: 512,
		},
		Server: ServerConfig{
			ListenAddr: "0.0.0.0:8080",
		},
		Session: SessionConfig{
			ExpiryDays:      30,
			InviteExpirySec: 3600,
		},
		Notify: NotifyConfig{
			MaxRetries: 10,
		},
		Logging: LoggingConfig{
			Dir:          "/var/log/unifi-monitor",
			SizeBudgetMB: 100,
			Level:        "info",
			Format:       "json",
		},
	}
}

// RetentionCheckInterval is how often the Retention Keeper wakes to
// re-evaluate the database size budget (spec §4.I).
const RetentionCheckInterval = 5 * time.Minute

// DispatcherIdleInterval is how often the Notification Dispatcher
// re-sweeps the pending set absent a wake signal (spec §4.H step 5).
const DispatcherIdleInterval = 30 * time.Second

// ChatSendTimeout bounds a single chat-service POST (spec §4.H step 2).
const ChatSendTimeout = 15 * time.Second

// BackoffBase/Cap govern both the ingestion supervisor's reconnect
// backoff (spec §4.F) and the dispatcher's per-event retry backoff
// (spec §4.H step 4). They share the same shape by design.
const (
	BackoffBase = 1 * time.Second
	BackoffCap  = 60 * time.Second
)
