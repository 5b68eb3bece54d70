package network

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Dial connects to a gateway websocket endpoint.
func Dial(url string) (*WSConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return NewWSConn(ws), nil
}

// Login performs the authentication handshake on a fresh connection: sends a
// login frame and waits for the gateway's login_ack.
func (c *WSConn) Login(deviceID, token string) error {
	if err := c.SendFrame(&Frame{Type: FrameLogin, DeviceID: deviceID, Token: token}); err != nil {
		return err
	}
	reply, err := c.ReadFrame()
	if err != nil {
		return err
	}
	if reply.Type != FrameLoginAck {
		if reply.Error != "" {
			return fmt.Errorf("login rejected: %s", reply.Error)
		}
		return fmt.Errorf("unexpected reply %q to login", reply.Type)
	}
	return nil
}
