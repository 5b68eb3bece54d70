package repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"robot-gateway/backend/app/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RobotCommand{}, &models.RobotConfig{}))
	return db
}

func seedCommand(t *testing.T, r *RobotCommandRepository, commandID, deviceID string) {
	t.Helper()
	require.NoError(t, r.Create(&models.RobotCommand{
		CommandID: commandID,
		DeviceID:  deviceID,
		Type:      "send_message",
		Code:      203,
		Priority:  5,
		Status:    models.StatusPending,
	}))
}

func TestCommandLifecycleTransitions(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))
	seedCommand(t, r, "cmd_1", "bot_1")

	require.NoError(t, r.MarkSent("cmd_1"))
	cmd, err := r.FindByCommandID("cmd_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSent, cmd.Status)
	assert.NotNil(t, cmd.SentAt)

	require.NoError(t, r.MarkAcked("cmd_1", `{"ok":true}`))
	cmd, err = r.FindByCommandID("cmd_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcked, cmd.Status)
	assert.Equal(t, `{"ok":true}`, cmd.Result)
	assert.NotNil(t, cmd.AckedAt)
}

func TestAckLandingBeforeSentUpdateSticks(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))
	seedCommand(t, r, "cmd_1", "bot_1")

	// The robot's reply can commit before the sent update; the later sent
	// write must not demote the resolved command.
	require.NoError(t, r.MarkAcked("cmd_1", `{"ok":true}`))
	require.NoError(t, r.MarkSent("cmd_1"))

	cmd, err := r.FindByCommandID("cmd_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcked, cmd.Status)
	assert.NotNil(t, cmd.AckedAt)
	assert.Nil(t, cmd.SentAt)
}

func TestTerminalStatesAreImmutable(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))

	seedCommand(t, r, "cmd_1", "bot_1")
	require.NoError(t, r.MarkSent("cmd_1"))
	require.NoError(t, r.MarkFailed("cmd_1", "boom"))
	require.NoError(t, r.MarkAcked("cmd_1", `{}`))
	cmd, err := r.FindByCommandID("cmd_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, cmd.Status)
	assert.Nil(t, cmd.AckedAt)

	seedCommand(t, r, "cmd_2", "bot_1")
	require.NoError(t, r.MarkSent("cmd_2"))
	require.NoError(t, r.MarkAcked("cmd_2", `{}`))
	require.NoError(t, r.MarkFailed("cmd_2", "late error"))
	cmd, err = r.FindByCommandID("cmd_2")
	require.NoError(t, err)
	assert.Equal(t, models.StatusAcked, cmd.Status)
	assert.Empty(t, cmd.LastError)
}

func TestMarkPendingCountsRetries(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))
	seedCommand(t, r, "cmd_1", "bot_1")
	require.NoError(t, r.MarkSent("cmd_1"))

	require.NoError(t, r.MarkPending("cmd_1", "ack timeout"))
	require.NoError(t, r.MarkSent("cmd_1"))
	require.NoError(t, r.MarkPending("cmd_1", "ack timeout"))

	cmd, err := r.FindByCommandID("cmd_1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, cmd.Status)
	assert.Equal(t, 2, cmd.Retries)
	assert.Equal(t, "ack timeout", cmd.LastError)
}

func TestListByDeviceFiltersDone(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))
	seedCommand(t, r, "cmd_1", "bot_1")
	seedCommand(t, r, "cmd_2", "bot_1")
	seedCommand(t, r, "cmd_3", "bot_2")

	require.NoError(t, r.MarkSent("cmd_2"))
	require.NoError(t, r.MarkAcked("cmd_2", "{}"))

	open, err := r.ListByDevice("bot_1", false)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "cmd_1", open[0].CommandID)

	all, err := r.ListByDevice("bot_1", true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatusCounts(t *testing.T) {
	r := NewRobotCommandRepository(testDB(t))
	seedCommand(t, r, "cmd_1", "bot_1")
	seedCommand(t, r, "cmd_2", "bot_1")
	seedCommand(t, r, "cmd_3", "bot_2")
	require.NoError(t, r.MarkFailed("cmd_3", "boom"))

	rows, err := r.StatusCounts()
	require.NoError(t, err)

	counts := make(map[string]int64)
	for _, row := range rows {
		counts[row.DeviceID+"/"+row.Status] = row.Count
	}
	assert.Equal(t, int64(2), counts["bot_1/"+models.StatusPending])
	assert.Equal(t, int64(1), counts["bot_2/"+models.StatusFailed])
}
