package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"robot-gateway/backend/app/dto"
	"robot-gateway/backend/app/services"
)

type ConfigController struct {
	Service *services.ConfigService
}

func NewConfigController(s *services.ConfigService) *ConfigController {
	return &ConfigController{Service: s}
}

// Get handles GET /robot/config?deviceid=...&type=..., the per-device
// config endpoint robots poll. Falls back to the static default.
func (c *ConfigController) Get(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceid")
	cfgType := r.URL.Query().Get("type")
	if deviceID == "" || cfgType == "" {
		writeError(w, http.StatusBadRequest, "deviceid and type are required")
		return
	}
	cfg, err := c.Service.Get(deviceID, cfgType)
	if err != nil {
		if errors.Is(err, services.ErrUnknownConfigType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// GetAll handles GET /robot/config/all?deviceid=...
func (c *ConfigController) GetAll(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceid")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceid is required")
		return
	}
	cfgs, err := c.Service.GetAll(deviceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load configs")
		return
	}
	writeJSON(w, http.StatusOK, cfgs)
}

// Set handles POST /admin/config.
func (c *ConfigController) Set(w http.ResponseWriter, r *http.Request) {
	var req dto.SetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "device_id, type and config are required")
		return
	}
	cfg, err := c.Service.Set(req.DeviceID, req.Type, req.Config)
	if err != nil {
		if errors.Is(err, services.ErrUnknownConfigType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// ReportSynced handles POST /robot/config/synced; stale version reports are
// accepted and ignored.
func (c *ConfigController) ReportSynced(w http.ResponseWriter, r *http.Request) {
	var req dto.SyncReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" || req.Type == "" {
		writeError(w, http.StatusBadRequest, "device_id and type are required")
		return
	}
	if err := c.Service.ReportSynced(req.DeviceID, req.Type, req.Version); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record sync report")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
