package services

import (
	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/app/socket"
)

// DeviceQueueStats is the per-device slice of the queue breakdown.
type DeviceQueueStats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Acked   int64 `json:"acked"`
	Failed  int64 `json:"failed"`
	Queued  int   `json:"queued"` // undelivered commands held in memory
	Online  bool  `json:"online"`
}

// QueueStats is the operator-facing aggregate snapshot.
type QueueStats struct {
	TotalPending int64                       `json:"total_pending"`
	TotalSent    int64                       `json:"total_sent"`
	TotalQueued  int                         `json:"total_queued"`
	PerDevice    map[string]DeviceQueueStats `json:"per_device"`
}

// StatsService is the read-only monitoring surface over registry and queue
// snapshots. It never mutates state.
type StatsService struct {
	hub   *socket.Hub
	queue *queue.Queue
	cmds  *repo.RobotCommandRepository
}

func NewStatsService(hub *socket.Hub, q *queue.Queue, cmds *repo.RobotCommandRepository) *StatsService {
	return &StatsService{hub: hub, queue: q, cmds: cmds}
}

func (s *StatsService) QueueStats() (*QueueStats, error) {
	rows, err := s.cmds.StatusCounts()
	if err != nil {
		return nil, err
	}
	out := &QueueStats{PerDevice: make(map[string]DeviceQueueStats)}
	for _, row := range rows {
		st := out.PerDevice[row.DeviceID]
		switch row.Status {
		case models.StatusPending:
			st.Pending = row.Count
			out.TotalPending += row.Count
		case models.StatusSent:
			st.Sent = row.Count
			out.TotalSent += row.Count
		case models.StatusAcked:
			st.Acked = row.Count
		case models.StatusFailed:
			st.Failed = row.Count
		}
		out.PerDevice[row.DeviceID] = st
	}
	for deviceID, n := range s.queue.PendingCounts() {
		st := out.PerDevice[deviceID]
		st.Queued = n
		out.PerDevice[deviceID] = st
		out.TotalQueued += n
	}
	for deviceID, st := range out.PerDevice {
		st.Online = s.hub.IsOnline(deviceID)
		out.PerDevice[deviceID] = st
	}
	return out, nil
}

func (s *StatsService) ConnectionCount() int {
	return s.hub.ConnectionCount()
}

func (s *StatsService) OnlineRobots() []string {
	return s.hub.OnlineDevices()
}

func (s *StatsService) ConnectionInfo(deviceID string) *socket.ConnInfo {
	return s.hub.ConnectionInfo(deviceID)
}

func (s *StatsService) Connections() []socket.ConnInfo {
	return s.hub.Snapshot()
}
