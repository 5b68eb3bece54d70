package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// CommandType enumerates the commands a robot understands.
type CommandType string

const (
	CmdSendMessage    CommandType = "send_message"
	CmdForwardMessage CommandType = "forward_message"
	CmdCreateGroup    CommandType = "create_group"
	CmdUpdateGroup    CommandType = "update_group"
	CmdSendFile       CommandType = "send_file"
	CmdDissolveGroup  CommandType = "dissolve_group"
	CmdSendFavorite   CommandType = "send_favorite"
)

// commandCodes is the fixed wire-code table. Unknown types map to 0 and are
// rejected before reaching the dispatcher.
var commandCodes = map[CommandType]int{
	CmdSendMessage:    203,
	CmdForwardMessage: 205,
	CmdCreateGroup:    206,
	CmdUpdateGroup:    207,
	CmdSendFile:       218,
	CmdDissolveGroup:  219,
	CmdSendFavorite:   900,
}

// Code returns the numeric wire code for the command type, 0 if unknown.
func (t CommandType) Code() int { return commandCodes[t] }

// Valid reports whether the type is one of the known commands.
func (t CommandType) Valid() bool { return commandCodes[t] != 0 }

// Priority bounds; lower value dispatches first.
const (
	PriorityMin     = 0
	PriorityMax     = 9
	PriorityDefault = 5
)

// PushCommandRequest is the body of POST /admin/command.
type PushCommandRequest struct {
	DeviceID string          `json:"device_id"`
	Type     CommandType     `json:"type"`
	Target   string          `json:"target,omitempty"`
	Params   json.RawMessage `json:"params,omitempty"`
	Priority *int            `json:"priority,omitempty"`
}

// PushCommandResponse reports the command id and whether it reached the
// robot's transport immediately (false means queued for reconnect).
type PushCommandResponse struct {
	CommandID string `json:"command_id"`
	Delivered bool   `json:"delivered"`
}

var (
	ErrMissingDeviceID = errors.New("device_id is required")
	ErrUnknownCommand  = errors.New("unknown command type")
	ErrBadPriority     = fmt.Errorf("priority must be between %d and %d", PriorityMin, PriorityMax)
)

// Validate checks the request and decodes the per-type parameter payload.
// It is the only place loosely-typed params are accepted; past this boundary
// every command carries a known type, code and a payload that decoded cleanly.
func (r *PushCommandRequest) Validate() error {
	if r.DeviceID == "" {
		return ErrMissingDeviceID
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownCommand, r.Type)
	}
	if r.Priority != nil && (*r.Priority < PriorityMin || *r.Priority > PriorityMax) {
		return ErrBadPriority
	}
	if _, err := DecodeParams(r.Type, r.Params); err != nil {
		return fmt.Errorf("invalid params for %s: %w", r.Type, err)
	}
	return nil
}

// EffectivePriority applies the default when the caller omitted priority.
func (r *PushCommandRequest) EffectivePriority() int {
	if r.Priority == nil {
		return PriorityDefault
	}
	return *r.Priority
}

// SendMessageParams carries a chat message payload.
type SendMessageParams struct {
	Content string   `json:"content"`
	AtList  []string `json:"at_list,omitempty"`
}

// ForwardMessageParams forwards an existing message to another target.
type ForwardMessageParams struct {
	MessageID string `json:"message_id"`
	To        string `json:"to,omitempty"`
}

// GroupParams covers create_group, update_group and dissolve_group.
type GroupParams struct {
	GroupID string   `json:"group_id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}

// SendFileParams points the robot at a file to deliver.
type SendFileParams struct {
	FileURL  string `json:"file_url"`
	FileName string `json:"file_name,omitempty"`
}

// FavoriteParams identifies a stored favorite to send.
type FavoriteParams struct {
	FavoriteID string `json:"favorite_id"`
}

// DecodeParams decodes raw params into the variant for the command type.
// Unknown fields are rejected so malformed payloads fail at the HTTP boundary
// instead of on the robot.
func DecodeParams(t CommandType, raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	var dst any
	switch t {
	case CmdSendMessage:
		dst = &SendMessageParams{}
	case CmdForwardMessage:
		dst = &ForwardMessageParams{}
	case CmdCreateGroup, CmdUpdateGroup, CmdDissolveGroup:
		dst = &GroupParams{}
	case CmdSendFile:
		dst = &SendFileParams{}
	case CmdSendFavorite:
		dst = &FavoriteParams{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, t)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return nil, err
	}
	return dst, nil
}
