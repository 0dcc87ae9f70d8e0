// UniFi Monitor
// SPDX-License-Identifier: AGPL-3.0-or-later

package binary

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Cynary/unifi-monitoring/internal/apperrors"
	"github.com/Cynary/unifi-monitoring/internal/session"
)

const readTimeout = 90 * time.Second

// Client is a connected binary-frame video feed.
type Client struct {
	conn     *websocket.Conn
	messages chan Message
	errc     chan error
	cancel   context.CancelFunc
}

// Dial opens the video feed's websocket and starts decoding the
// custom framed/compressed protocol described in spec §4.D.
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
			return nil, apperrors.AuthFailed("binary feed dial rejected: " + err.Error())
		}
		return nil, apperrors.TransientNetwork(err)
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Client{
		conn:     conn,
		messages: make(chan Message, 64),
		errc:     make(chan error, 1),
		cancel:   cancel,
	}
	go c.readLoop(ctx)
	return c, nil
}

// Messages returns the channel of decoded (action, payload) pairs,
// closed when the connection terminates.
func (c *Client) Messages() <-chan Message { return c.messages }

// Err returns the terminal error for this connection once Messages()
// is closed.
func (c *Client) Err() error {
	select {
	case err := <-c.errc:
		return err
	default:
		return nil
	}
}

// Close terminates the connection and its decode loop.
func (c *Client) Close() error {
	c.cancel()
	return c.conn.Close()
}

// wsReader adapts a sequence of websocket binary messages into a
// continuous io.Reader, since the 8-byte-header protocol does not
// guarantee one frame per websocket message.
type wsReader struct {
	conn *websocket.Conn
	buf  []byte
}

func (w *wsReader) Read(p []byte) (int, error) {
	for len(w.buf) == 0 {
		_ = w.conn.SetReadDeadline(time.Now().Add(readTimeout))
		msgType, data, err := w.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		w.buf = data
	}
	n := copy(p, w.buf)
	w.buf = w.buf[n:]
	return n, nil
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.messages)
	r := &wsReader{conn: c.conn}

	for {
		if ctx.Err() != nil {
			c.errc <- ctx.Err()
			return
		}

		msg, err := readMessage(r)
		if err != nil {
			if err == io.EOF {
				err = apperrors.TransientNetwork(fmt.Errorf("binary feed closed"))
			}
			// Per spec §4.D, any decode error (including malformed
			// header) closes the channel; the supervisor reconnects
			// from the last-committed cursor rather than attempting
			// byte-level resync.
			_ = c.conn.Close()
			c.errc <- err
			return
		}

		select {
		case c.messages <- msg:
		case <-ctx.Done():
			c.errc <- ctx.Err()
			return
		}
	}
}
