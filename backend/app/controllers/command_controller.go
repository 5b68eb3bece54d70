package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"robot-gateway/backend/app/dispatch"
	"robot-gateway/backend/app/dto"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
)

type CommandController struct {
	Dispatcher *dispatch.Dispatcher
	Repo       *repo.RobotCommandRepository
}

func NewCommandController(d *dispatch.Dispatcher, r *repo.RobotCommandRepository) *CommandController {
	return &CommandController{Dispatcher: d, Repo: r}
}

// Push handles POST /admin/command. Offline robots are not an error: the
// command is queued and the response carries delivered=false.
func (c *CommandController) Push(w http.ResponseWriter, r *http.Request) {
	var req dto.PushCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	commandID, delivered, err := c.Dispatcher.Push(&req)
	if err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			writeError(w, http.StatusTooManyRequests, "command queue full for device")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to dispatch command")
		return
	}
	writeJSON(w, http.StatusOK, dto.PushCommandResponse{CommandID: commandID, Delivered: delivered})
}

// Cancel handles POST /admin/command/cancel: drops a still-queued command.
// Commands already sent to the robot are past the point of no return.
func (c *CommandController) Cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID  string `json:"device_id"`
		CommandID string `json:"command_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" || req.CommandID == "" {
		writeError(w, http.StatusBadRequest, "device_id and command_id are required")
		return
	}
	if !c.Dispatcher.Cancel(req.DeviceID, req.CommandID) {
		writeError(w, http.StatusNotFound, "command is not queued")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Queue handles GET /admin/command/queue?deviceid=...&include_done=true|false
// and returns a device's command history.
func (c *CommandController) Queue(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("deviceid")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "deviceid is required")
		return
	}
	includeDone := r.URL.Query().Get("include_done") == "true"
	cmds, err := c.Repo.ListByDevice(deviceID, includeDone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load commands")
		return
	}

	type resp struct {
		CommandID string `json:"command_id"`
		Type      string `json:"type"`
		Code      int    `json:"code"`
		Target    string `json:"target,omitempty"`
		Priority  int    `json:"priority"`
		Status    string `json:"status"`
		Retries   int    `json:"retries"`
		LastError string `json:"last_error,omitempty"`
		CreatedAt int64  `json:"created_at"`
		SentAt    *int64 `json:"sent_at,omitempty"`
		AckedAt   *int64 `json:"acked_at,omitempty"`
	}
	out := make([]resp, 0, len(cmds))
	for _, cmd := range cmds {
		item := resp{
			CommandID: cmd.CommandID,
			Type:      cmd.Type,
			Code:      cmd.Code,
			Target:    cmd.Target,
			Priority:  cmd.Priority,
			Status:    cmd.Status,
			Retries:   cmd.Retries,
			LastError: cmd.LastError,
			CreatedAt: cmd.CreatedAt.Unix(),
		}
		if cmd.SentAt != nil {
			ts := cmd.SentAt.Unix()
			item.SentAt = &ts
		}
		if cmd.AckedAt != nil {
			ts := cmd.AckedAt.Unix()
			item.AckedAt = &ts
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, out)
}
