// Package network provides the transport layer between the gateway and
// remote robots: a Conn abstraction over a websocket connection plus the
// JSON frame protocol spoken on it.
package network

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

var ErrConnClosed = errors.New("connection closed")

// Conn is a live bidirectional channel to a single robot. Implementations
// must be safe for concurrent Send calls.
type Conn interface {
	Send(data []byte) error
	Close() error
	RemoteAddr() string
}

// WSConn wraps a gorilla websocket connection. Writes are serialized with a
// mutex since gorilla allows at most one concurrent writer.
type WSConn struct {
	mu     sync.Mutex
	ws     *websocket.Conn
	closed bool
}

// Upgrader is shared by the websocket endpoints. Origin checking is left to
// the HTTP layer.
var Upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

func NewWSConn(ws *websocket.Conn) *WSConn {
	return &WSConn{ws: ws}
}

func (c *WSConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendFrame encodes and sends a protocol frame.
func (c *WSConn) SendFrame(f *Frame) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	return c.Send(data)
}

// ReadFrame blocks until the next frame arrives. It must only be called from
// the connection's single read loop.
func (c *WSConn) ReadFrame() (*Frame, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return DecodeFrame(data)
}

func (c *WSConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.ws.Close()
}

func (c *WSConn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}
