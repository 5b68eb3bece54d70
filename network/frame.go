package network

import "encoding/json"

// FrameType identifies a protocol frame exchanged with a robot.
type FrameType string

const (
	FrameLogin     FrameType = "login"
	FrameLoginAck  FrameType = "login_ack"
	FrameHeartbeat FrameType = "heartbeat"
	FrameCommand   FrameType = "command"
	FrameAck       FrameType = "ack"
	FrameError     FrameType = "error"
)

// Frame is the JSON envelope for every message on a robot connection.
// Only the fields relevant to the frame type are populated.
type Frame struct {
	Type     FrameType `json:"type"`
	DeviceID string    `json:"device_id,omitempty"`
	Token    string    `json:"token,omitempty"`

	// Command delivery (server -> robot).
	CommandID string          `json:"command_id,omitempty"`
	Command   string          `json:"command,omitempty"`
	Code      int             `json:"code,omitempty"`
	Target    string          `json:"target,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`

	// Acknowledgement (robot -> server).
	OK     bool            `json:"ok,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// Encode marshals the frame for the wire.
func (f *Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeFrame parses a wire payload into a Frame.
func DecodeFrame(data []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
