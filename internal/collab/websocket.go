package collab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WriteTimeout bounds a single frame write.
	WriteTimeout = 5 * time.Second

	// HandshakeTimeout bounds the websocket opening handshake.
	HandshakeTimeout = 5 * time.Second
)

// HandshakeError is returned by Open when the relay refuses the upgrade.
type HandshakeError struct {
	Status     string
	StatusCode int
}

func (e *HandshakeError) Error() string {
	return "websocket handshake: " + e.Status
}

// WebsocketTransport reaches a relay over websockets. Each channel is a
// connection to <base>/rooms/<channel name>.
type WebsocketTransport struct {
	base   *url.URL
	dialer *websocket.Dialer
}

// NewWebsocketTransport creates a transport for the relay at rawURL.
// http and https URLs are rewritten to ws and wss.
func NewWebsocketTransport(rawURL string) (*WebsocketTransport, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("relay url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return nil, fmt.Errorf("relay url: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("relay url: missing host in %q", rawURL)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	return &WebsocketTransport{
		base: u,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: HandshakeTimeout,
		},
	}, nil
}

// URL returns the websocket address of the named channel.
func (t *WebsocketTransport) URL(name string) string {
	return t.base.String() + "/rooms/" + name
}

// Open dials the relay room for name.
func (t *WebsocketTransport) Open(ctx context.Context, name string) (Channel, error) {
	conn, resp, err := t.dialer.DialContext(ctx, t.URL(name), nil)
	if errors.Is(err, websocket.ErrBadHandshake) && resp != nil {
		return nil, &HandshakeError{Status: resp.Status, StatusCode: resp.StatusCode}
	}
	if err != nil {
		return nil, err
	}
	return &wsChannel{conn: conn, closed: make(chan struct{})}, nil
}

type wsChannel struct {
	conn *websocket.Conn

	// gorilla connections allow one concurrent writer.
	wmu sync.Mutex

	closeOnce sync.Once
	closed    chan struct{}
}

func (c *wsChannel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *wsChannel) Send(ctx context.Context, op Op) error {
	if c.isClosed() {
		return ErrChannelClosed
	}

	deadline := time.Now().Add(WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteJSON(op)
}

// Recv reads the next frame. The read cannot observe ctx directly; Close
// unblocks it.
func (c *wsChannel) Recv(ctx context.Context) (Op, error) {
	if err := ctx.Err(); err != nil {
		return Op{}, err
	}

	var op Op
	err := c.conn.ReadJSON(&op)
	switch {
	case err == nil:
		return op, nil
	case c.isClosed():
		return Op{}, ErrChannelClosed
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		return Op{}, fmt.Errorf("%w: %v", ErrChannelClosed, err)
	default:
		return Op{}, err
	}
}

func (c *wsChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)

		c.wmu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(WriteTimeout))
		c.wmu.Unlock()

		err = c.conn.Close()
	})
	return err
}
