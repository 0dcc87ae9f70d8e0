// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package text implements the persistent text-frame feed transport
// used for the network and host-OS feeds (spec §4.C). Each decoded
// JSON frame is delivered on Frames(); a single terminal error is
// available on Err() once the channel closes.
package text

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/logging"
	"github.com/Cynary/unifi-monitoring/internal/session"
)

const (
	appPingType = "ping"
	appPongType = "pong"

	readTimeout = 90 * time.Second
)

// Frame is a decoded application-level message from the feed.
type Frame struct {
	Raw json.RawMessage
}

// envelope is used only to detect application-level keepalive pings;
// substantive frames are passed through to the caller untouched.
type envelope struct {
	Type string `json:"type"`
}

// Client is a connected text-frame feed.
type Client struct {
	conn    *websocket.Conn
	frames  chan Frame
	errc    chan error
	cancel  context.CancelFunc
}

// Dial opens a websocket connection to feedURL, attaching the session
// cookie and resuming from lastUpdateID via a query parameter (spec
// §6: "Resume via lastUpdateId passed as a query parameter at channel
// open").
func Dial(ctx context.Context, feedURL string, creds *session.Credentials, lastUpdateID string) (*Client, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return nil, apperrors.ProtocolViolation("invalid feed url: " + err.Error())
	}
	if lastUpdateID != "" {
		q := u.Query()
		q.Set("lastUpdateId", lastUpdateID)
		u.RawQuery = q.Encode()
	}

	header := http.Header{}
	for _, c := range creds.Cookies {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	if creds.CSRF != "" {
		header.Set("X-Csrf-Token", creds.CSRF)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, apperrors.AuthFailed("text feed dial rejected: " + err.Error())
		}
		return nil, apperrors.TransientNetwork(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:   conn,
		frames: make(chan Frame, 64),
		errc:   make(chan error, 1),
		cancel: cancel,
	}
	go c.readLoop(ctx)
	return c, nil
}

// Frames returns the channel of decoded frames. It is closed when the
// connection terminates; callers should then read Err().
func (c *Client) Frames() <-chan Frame { return c.frames }

// Err returns the terminal error for this connection, valid after
// Frames() is closed. The read loop records an error on every way it
// ends, so nil means that error has not been recorded yet (or was
// already taken by an earlier call).
func (c *Client) Err() error {
	select {
	case err := <-c.errc:
		return err
	default:
		return nil
	}
}

// Close terminates the connection and its read loop.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close()
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.frames)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))

	for {
		if ctx.Err() != nil {
			c.errc <- ctx.Err()
			return
		}

		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.errc <- apperrors.TransientNetwork(fmt.Errorf("text feed closed: %w", err))
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var env envelope
		if err := json.Unmarshal(data, &env); err == nil && env.Type == appPingType {
			if err := c.sendPong(); err != nil {
				logging.Warn().Err(err).Msg("text feed: failed to send keepalive pong")
			}
			continue
		}

		select {
		case c.frames <- Frame{Raw: json.RawMessage(data)}:
		case <-ctx.Done():
			c.errc <- ctx.Err()
			return
		}
	}
}

func (c *Client) sendPong() error {
	return c.conn.WriteJSON(envelope{Type: appPongType})
}
