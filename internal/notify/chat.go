// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify implements the Notification Dispatcher (spec §4.H):
// a single long-running worker that delivers notify-classified events
// to an external chat service, with bounded per-event retry and
// dead-lettering at the configured maximum.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/config"
	"github.com/Cynary/unifi-monitoring/internal/model"
)

// ChatClient delivers rendered event notifications to the configured
// chat service target.
type ChatClient struct {
	apiURL   string
	targetID string
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker[struct{}]
}

// NewChatClient builds a ChatClient posting to a Telegram-compatible
// bot API (spec §4.H step 2: "call the external chat service").
func NewChatClient(cfg config.ChatConfig) *ChatClient {
	settings := gobreaker.Settings{
		Name:        "chat-dispatch",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &ChatClient{
		apiURL:   fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", cfg.BotToken),
		targetID: cfg.TargetID,
		client:   &http.Client{Timeout: config.ChatSendTimeout},
		breaker:  gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

type sendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

// Send renders evt and delivers it, timing out after
// config.ChatSendTimeout (spec §4.H step 2). The event id is always
// included in the rendered body so an operator can recognise
// at-least-once redelivery.
func (c *ChatClient) Send(ctx context.Context, evt *model.Event) error {
	ctx, cancel := context.WithTimeout(ctx, config.ChatSendTimeout)
	defer cancel()

	body, err := json.Marshal(sendRequest{ChatID: c.targetID, Text: renderMessage(evt)})
	if err != nil {
		return apperrors.NotifyFailed(evt.NotifyAttempts+1, err)
	}

	_, err = c.breaker.Execute(func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			return struct{}{}, err
		}
		defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

		if resp.StatusCode >= 300 {
			return struct{}{}, fmt.Errorf("chat service status %d", resp.StatusCode)
		}
		return struct{}{}, nil
	})
	if err != nil {
		return apperrors.NotifyFailed(evt.NotifyAttempts+1, err)
	}
	return nil
}

// renderMessage formats an event for the chat service (spec §4.H
// step 2: "type, source, severity, timestamp, and summary").
func renderMessage(evt *model.Event) string {
	ts := time.Unix(evt.Timestamp, 0).UTC().Format(time.RFC3339)
	return fmt.Sprintf(
		"[%s] %s/%s (%s)\n%s\nid=%s",
		ts, evt.Source, evt.EventType, evt.Severity, evt.Summary, evt.ID,
	)
}
