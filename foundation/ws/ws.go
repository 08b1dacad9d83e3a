// Package ws carries peer protocol frames over websocket binary messages.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrMessageType is returned when the remote side sends anything but a
// binary message.
var ErrMessageType = errors.New("unexpected websocket message type")

// Limits applied to every connection.
const (
	MaxFrameSize = 4 << 20
	writeWait    = 10 * time.Second
)

// =============================================================================

// Conn adapts a websocket connection to a message transport. One frame is
// one binary message.
type Conn struct {
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// New wraps an established websocket connection.
func New(c *websocket.Conn) *Conn {
	c.SetReadLimit(MaxFrameSize)

	// A connection taken over from an http server keeps its deadlines.
	c.SetReadDeadline(time.Time{})

	return &Conn{ws: c}
}

// Dial connects to the websocket endpoint at the url.
func Dial(ctx context.Context, url string) (*Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: writeWait,
	}

	c, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: status %d: %w", url, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	return New(c), nil
}

// Upgrader upgrades http requests to peer connections.
type Upgrader struct {
	upgrader websocket.Upgrader
}

// NewUpgrader constructs an upgrader. An empty origin list or the origin *
// accepts any origin. Requests without an Origin header come from non
// browser clients and are always accepted.
func NewUpgrader(origins ...string) *Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}

	u := Upgrader{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if len(allowed) == 0 || origin == "" {
					return true
				}
				if _, ok := allowed["*"]; ok {
					return true
				}
				_, ok := allowed[origin]
				return ok
			},
		},
	}

	return &u
}

// Upgrade completes the websocket handshake on the request.
func (u *Upgrader) Upgrade(w http.ResponseWriter, r *http.Request) (*Conn, error) {
	c, err := u.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("upgrade: %w", err)
	}

	return New(c), nil
}

// =============================================================================

// Read returns the next binary message.
func (c *Conn) Read() ([]byte, error) {
	typ, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}

	if typ != websocket.BinaryMessage {
		return nil, fmt.Errorf("%w: %d", ErrMessageType, typ)
	}

	return data, nil
}

// Write sends the bytes as one binary message.
func (c *Conn) Write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}

// Close sends a close message and closes the underlying connection.
func (c *Conn) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

	return c.ws.Close()
}

// RemoteAddr returns the address of the remote side.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
