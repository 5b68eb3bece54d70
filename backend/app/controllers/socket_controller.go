package controllers

import (
	"net/http"

	"robot-gateway/backend/app/dispatch"
	jwtutil "robot-gateway/backend/app/jwt"
	"robot-gateway/backend/app/socket"
	"robot-gateway/backend/global"
	"robot-gateway/network"
)

// SocketController owns the robot websocket endpoint: the authentication
// handshake, hub registration and the per-connection read loop.
type SocketController struct {
	Hub        *socket.Hub
	Dispatcher *dispatch.Dispatcher
	Signer     *jwtutil.Signer
}

func NewSocketController(h *socket.Hub, d *dispatch.Dispatcher, signer *jwtutil.Signer) *SocketController {
	return &SocketController{Hub: h, Dispatcher: d, Signer: signer}
}

// Serve handles GET /ws/robot. The first frame must be a login carrying a
// valid device token; everything after that is heartbeats and command acks.
func (c *SocketController) Serve(w http.ResponseWriter, r *http.Request) {
	ws, err := network.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		global.Logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	conn := network.NewWSConn(ws)

	deviceID, err := c.handshake(conn)
	if err != nil {
		global.Logger.Warn().Err(err).Str("remote", conn.RemoteAddr()).Msg("robot login rejected")
		_ = conn.SendFrame(&network.Frame{Type: network.FrameError, Error: err.Error()})
		_ = conn.Close()
		return
	}

	// Registration triggers the dispatcher's reconnect flush.
	c.Hub.Register(deviceID, conn)
	c.readLoop(deviceID, conn)
	c.Hub.Unregister(deviceID, conn)
}

func (c *SocketController) handshake(conn *network.WSConn) (string, error) {
	frame, err := conn.ReadFrame()
	if err != nil {
		return "", err
	}
	if frame.Type != network.FrameLogin {
		return "", errLoginExpected
	}
	claims, err := c.Signer.Parse(frame.Token)
	if err != nil {
		return "", err
	}
	deviceID := claims.DeviceID
	if deviceID == "" || (frame.DeviceID != "" && frame.DeviceID != deviceID) {
		return "", errDeviceMismatch
	}
	if err := conn.SendFrame(&network.Frame{Type: network.FrameLoginAck, DeviceID: deviceID}); err != nil {
		return "", err
	}
	return deviceID, nil
}

// readLoop is the single reader for the connection; per-device inbound
// ordering follows from there being exactly one of these per live conn.
func (c *SocketController) readLoop(deviceID string, conn *network.WSConn) {
	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			global.Logger.Debug().Err(err).Str("device", deviceID).Msg("read loop ended")
			return
		}
		switch frame.Type {
		case network.FrameHeartbeat:
			c.Hub.TouchHeartbeat(deviceID)
		case network.FrameAck:
			c.Dispatcher.HandleAck(deviceID, frame.CommandID, frame.OK, frame.Result, frame.Error)
		default:
			global.Logger.Warn().Str("device", deviceID).Str("type", string(frame.Type)).
				Msg("unexpected frame from robot")
		}
	}
}
