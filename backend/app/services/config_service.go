package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"robot-gateway/backend/app/dto"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/global"
)

// Known config types and their static defaults, served with version 0 until
// an administrator stores a device-specific blob.
var defaultConfigs = map[string]json.RawMessage{
	"chat":    json.RawMessage(`{"auto_reply":false,"reply_delay_ms":800,"typing_simulation":true}`),
	"group":   json.RawMessage(`{"max_members":200,"welcome_message":"","auto_accept_invites":false}`),
	"reply":   json.RawMessage(`{"model":"default","temperature":0.7,"max_context_messages":20}`),
	"storage": json.RawMessage(`{"keep_days":30,"max_media_mb":512}`),
}

var ErrUnknownConfigType = errors.New("unknown config type")

// ConfigService serves and versions per-robot configuration.
type ConfigService struct {
	repo *repo.RobotConfigRepository
}

func NewConfigService(r *repo.RobotConfigRepository) *ConfigService {
	return &ConfigService{repo: r}
}

// Default returns the static fallback for a config type.
func (s *ConfigService) Default(cfgType string) (json.RawMessage, error) {
	def, ok := defaultConfigs[cfgType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfigType, cfgType)
	}
	return def, nil
}

// Get returns a device's config for one type, falling back to the default
// (with IsDefault set) when nothing has been stored yet.
func (s *ConfigService) Get(deviceID, cfgType string) (*dto.ConfigResponse, error) {
	cfg, err := s.repo.Find(deviceID, cfgType)
	if err == nil {
		return &dto.ConfigResponse{
			Type:    cfg.Type,
			Config:  json.RawMessage(cfg.Config),
			Version: cfg.Version,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	def, derr := s.Default(cfgType)
	if derr != nil {
		return nil, derr
	}
	return &dto.ConfigResponse{Type: cfgType, Config: def, Version: 0, IsDefault: true}, nil
}

// GetAll returns every known config type for a device, stored blobs first
// and defaults for the rest.
func (s *ConfigService) GetAll(deviceID string) (map[string]*dto.ConfigResponse, error) {
	stored, err := s.repo.ListByDevice(deviceID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*dto.ConfigResponse, len(defaultConfigs))
	for _, cfg := range stored {
		out[cfg.Type] = &dto.ConfigResponse{
			Type:    cfg.Type,
			Config:  json.RawMessage(cfg.Config),
			Version: cfg.Version,
		}
	}
	for cfgType, def := range defaultConfigs {
		if _, ok := out[cfgType]; !ok {
			out[cfgType] = &dto.ConfigResponse{Type: cfgType, Config: def, Version: 0, IsDefault: true}
		}
	}
	return out, nil
}

// Set stores a new config blob, bumping the version and marking it unsynced.
func (s *ConfigService) Set(deviceID, cfgType string, config json.RawMessage) (*dto.ConfigResponse, error) {
	if _, ok := defaultConfigs[cfgType]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownConfigType, cfgType)
	}
	if !json.Valid(config) {
		return nil, errors.New("config is not valid JSON")
	}
	cfg, err := s.repo.Upsert(deviceID, cfgType, string(config))
	if err != nil {
		return nil, err
	}
	global.Logger.Info().Str("device", deviceID).Str("type", cfgType).
		Int("version", cfg.Version).Msg("config updated")
	return &dto.ConfigResponse{
		Type:    cfg.Type,
		Config:  json.RawMessage(cfg.Config),
		Version: cfg.Version,
	}, nil
}

// ReportSynced records that the robot applied a version. Reports older than
// the already-synced version are discarded, not errors: a robot may replay
// a stale report after reconnecting.
func (s *ConfigService) ReportSynced(deviceID, cfgType string, version int) error {
	if err := s.repo.MarkSynced(deviceID, cfgType, version); err != nil {
		return err
	}
	global.Logger.Debug().Str("device", deviceID).Str("type", cfgType).
		Int("version", version).Msg("config sync reported")
	return nil
}
