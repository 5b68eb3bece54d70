package services

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/global"
)

func TestMain(m *testing.M) {
	global.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RobotConfig{}, &models.RobotCommand{}))
	return db
}

func newConfigService(t *testing.T) (*ConfigService, *repo.RobotConfigRepository) {
	t.Helper()
	r := repo.NewRobotConfigRepository(testDB(t))
	return NewConfigService(r), r
}

func TestGetFallsBackToDefault(t *testing.T) {
	s, _ := newConfigService(t)

	resp, err := s.Get("bot_1", "chat")
	require.NoError(t, err)
	assert.True(t, resp.IsDefault)
	assert.Equal(t, 0, resp.Version)
	assert.True(t, json.Valid(resp.Config))

	_, err = s.Get("bot_1", "weather")
	assert.ErrorIs(t, err, ErrUnknownConfigType)
}

func TestSetBumpsVersion(t *testing.T) {
	s, _ := newConfigService(t)

	resp, err := s.Set("bot_1", "chat", json.RawMessage(`{"auto_reply":true}`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Version)

	resp, err = s.Set("bot_1", "chat", json.RawMessage(`{"auto_reply":false}`))
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Version)

	// Versions are independent per (device, type).
	resp, err = s.Set("bot_1", "group", json.RawMessage(`{"max_members":50}`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Version)
	resp, err = s.Set("bot_2", "chat", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Version)

	got, err := s.Get("bot_1", "chat")
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
	assert.Equal(t, 2, got.Version)
	assert.JSONEq(t, `{"auto_reply":false}`, string(got.Config))
}

func TestSetRejectsBadInput(t *testing.T) {
	s, _ := newConfigService(t)

	_, err := s.Set("bot_1", "weather", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, ErrUnknownConfigType)

	_, err = s.Set("bot_1", "chat", json.RawMessage(`{broken`))
	assert.Error(t, err)
}

func TestGetAllMergesStoredAndDefaults(t *testing.T) {
	s, _ := newConfigService(t)

	_, err := s.Set("bot_1", "chat", json.RawMessage(`{"auto_reply":true}`))
	require.NoError(t, err)

	all, err := s.GetAll("bot_1")
	require.NoError(t, err)
	require.Len(t, all, 4)

	assert.False(t, all["chat"].IsDefault)
	assert.Equal(t, 1, all["chat"].Version)
	for _, typ := range []string{"group", "reply", "storage"} {
		require.Contains(t, all, typ)
		assert.True(t, all[typ].IsDefault, typ)
		assert.Equal(t, 0, all[typ].Version, typ)
	}
}

func TestReportSyncedIsMonotonic(t *testing.T) {
	s, r := newConfigService(t)

	_, err := s.Set("bot_1", "chat", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = s.Set("bot_1", "chat", json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, s.ReportSynced("bot_1", "chat", 2))
	cfg, err := r.Find("bot_1", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.SyncedVersion)
	assert.NotNil(t, cfg.LastSyncedAt)

	// A replayed report for an older version leaves the row untouched.
	require.NoError(t, s.ReportSynced("bot_1", "chat", 1))
	cfg, err = r.Find("bot_1", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.SyncedVersion)
}

func TestReportSyncedBelowStoredVersionIgnored(t *testing.T) {
	s, r := newConfigService(t)

	_, err := s.Set("bot_1", "chat", json.RawMessage(`{}`))
	require.NoError(t, err)
	_, err = s.Set("bot_1", "chat", json.RawMessage(`{}`))
	require.NoError(t, err)

	// The robot applied version 1 but the stored config has moved on to
	// version 2; the outdated report must not count as synced.
	require.NoError(t, s.ReportSynced("bot_1", "chat", 1))
	cfg, err := r.Find("bot_1", "chat")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.SyncedVersion)
	assert.Nil(t, cfg.LastSyncedAt)

	require.NoError(t, s.ReportSynced("bot_1", "chat", 2))
	cfg, err = r.Find("bot_1", "chat")
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.SyncedVersion)
}
