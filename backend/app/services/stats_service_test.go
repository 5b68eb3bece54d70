package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/app/socket"
)

type nopConn struct{}

func (nopConn) Send([]byte) error  { return nil }
func (nopConn) Close() error       { return nil }
func (nopConn) RemoteAddr() string { return "test" }

func TestQueueStatsAggregates(t *testing.T) {
	cmds := repo.NewRobotCommandRepository(testDB(t))
	hub := socket.NewHub(time.Minute)
	q := queue.New(0)
	s := NewStatsService(hub, q, cmds)

	seed := []struct {
		device string
		status string
	}{
		{"bot_1", models.StatusPending},
		{"bot_1", models.StatusPending},
		{"bot_1", models.StatusSent},
		{"bot_1", models.StatusAcked},
		{"bot_2", models.StatusFailed},
	}
	for i, row := range seed {
		require.NoError(t, cmds.Create(&models.RobotCommand{
			CommandID: string(rune('a'+i)) + "_cmd",
			DeviceID:  row.device,
			Type:      "send_message",
			Code:      203,
			Status:    row.status,
		}))
	}

	_, err := q.Enqueue("bot_1", "queued_cmd", 5, nil)
	require.NoError(t, err)
	hub.Register("bot_1", nopConn{})

	stats, err := s.QueueStats()
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.TotalPending)
	assert.Equal(t, int64(1), stats.TotalSent)
	assert.Equal(t, 1, stats.TotalQueued)

	b1 := stats.PerDevice["bot_1"]
	assert.Equal(t, int64(2), b1.Pending)
	assert.Equal(t, int64(1), b1.Sent)
	assert.Equal(t, int64(1), b1.Acked)
	assert.Equal(t, 1, b1.Queued)
	assert.True(t, b1.Online)

	b2 := stats.PerDevice["bot_2"]
	assert.Equal(t, int64(1), b2.Failed)
	assert.False(t, b2.Online)

	assert.Equal(t, 1, s.ConnectionCount())
	assert.Equal(t, []string{"bot_1"}, s.OnlineRobots())
}
