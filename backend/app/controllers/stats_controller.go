package controllers

import (
	"net/http"

	"robot-gateway/backend/app/services"
)

type StatsController struct {
	Service *services.StatsService
}

func NewStatsController(s *services.StatsService) *StatsController {
	return &StatsController{Service: s}
}

// QueueStats handles GET /admin/queue/stats.
func (c *StatsController) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := c.Service.QueueStats()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to collect queue stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Online handles GET /admin/online. With a deviceid query it reports one
// robot, otherwise the full online list.
func (c *StatsController) Online(w http.ResponseWriter, r *http.Request) {
	if deviceID := r.URL.Query().Get("deviceid"); deviceID != "" {
		info := c.Service.ConnectionInfo(deviceID)
		writeJSON(w, http.StatusOK, map[string]bool{"online": info != nil})
		return
	}
	list := c.Service.OnlineRobots()
	writeJSON(w, http.StatusOK, map[string]any{
		"online_devices": list,
		"count":          len(list),
	})
}

// Connections handles GET /admin/connections: the full registry snapshot.
func (c *StatsController) Connections(w http.ResponseWriter, r *http.Request) {
	if deviceID := r.URL.Query().Get("deviceid"); deviceID != "" {
		info := c.Service.ConnectionInfo(deviceID)
		if info == nil {
			writeError(w, http.StatusNotFound, "device not connected")
			return
		}
		writeJSON(w, http.StatusOK, info)
		return
	}
	writeJSON(w, http.StatusOK, c.Service.Connections())
}
