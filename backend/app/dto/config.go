package dto

import "encoding/json"

// SetConfigRequest is the body of POST /admin/config.
type SetConfigRequest struct {
	DeviceID string          `json:"device_id"`
	Type     string          `json:"type"`
	Config   json.RawMessage `json:"config"`
}

// ConfigResponse is a single versioned config blob for a device.
type ConfigResponse struct {
	Type      string          `json:"type"`
	Config    json.RawMessage `json:"config"`
	Version   int             `json:"version"`
	IsDefault bool            `json:"is_default,omitempty"`
}

// SyncReportRequest is sent by a robot after applying a config version.
type SyncReportRequest struct {
	DeviceID string `json:"device_id"`
	Type     string `json:"type"`
	Version  int    `json:"version"`
}
