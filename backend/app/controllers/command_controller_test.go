package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"robot-gateway/backend/app/dispatch"
	"robot-gateway/backend/app/dto"
	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/app/socket"
	"robot-gateway/backend/global"
)

func TestMain(m *testing.M) {
	global.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

type env struct {
	hub  *socket.Hub
	q    *queue.Queue
	cmds *repo.RobotCommandRepository
	d    *dispatch.Dispatcher
}

func newEnv(t *testing.T, queueMax int) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.RobotCommand{}))

	hub := socket.NewHub(time.Minute)
	q := queue.New(queueMax)
	cmds := repo.NewRobotCommandRepository(db)
	d := dispatch.NewDispatcher(hub, q, cmds, dispatch.Config{})
	return &env{hub: hub, q: q, cmds: cmds, d: d}
}

func doPush(t *testing.T, c *CommandController, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/admin/command", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c.Push(rec, req)
	return rec
}

func TestPushValidationErrors(t *testing.T) {
	e := newEnv(t, 0)
	c := NewCommandController(e.d, e.cmds)

	cases := []struct {
		name string
		body string
	}{
		{"malformed body", `{not json`},
		{"missing device", `{"type":"send_message"}`},
		{"unknown type", `{"device_id":"bot_1","type":"reboot"}`},
		{"bad priority", `{"device_id":"bot_1","type":"send_message","priority":12}`},
		{"unknown param field", `{"device_id":"bot_1","type":"send_message","params":{"shell":"x"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doPush(t, c, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Equal(t, 0, e.q.TotalPending())
}

func TestPushQueuesOfflineRobot(t *testing.T) {
	e := newEnv(t, 0)
	c := NewCommandController(e.d, e.cmds)

	rec := doPush(t, c, `{"device_id":"bot_1","type":"send_message","params":{"content":"hi"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.PushCommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Delivered)
	assert.True(t, strings.HasPrefix(resp.CommandID, "cmd_"))
	assert.Equal(t, 1, e.q.Len("bot_1"))
}

func TestPushBackpressure(t *testing.T) {
	e := newEnv(t, 1)
	c := NewCommandController(e.d, e.cmds)

	rec := doPush(t, c, `{"device_id":"bot_1","type":"send_message"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doPush(t, c, `{"device_id":"bot_1","type":"send_message"}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	e := newEnv(t, 0)
	c := NewCommandController(e.d, e.cmds)

	rec := doPush(t, c, `{"device_id":"bot_1","type":"send_message"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.PushCommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	body := `{"device_id":"bot_1","command_id":"` + resp.CommandID + `"}`
	req := httptest.NewRequest(http.MethodPost, "/admin/command/cancel", strings.NewReader(body))
	cancel := httptest.NewRecorder()
	c.Cancel(cancel, req)
	assert.Equal(t, http.StatusNoContent, cancel.Code)
	assert.Equal(t, 0, e.q.Len("bot_1"))

	req = httptest.NewRequest(http.MethodPost, "/admin/command/cancel", strings.NewReader(body))
	again := httptest.NewRecorder()
	c.Cancel(again, req)
	assert.Equal(t, http.StatusNotFound, again.Code)
}

func TestQueueListing(t *testing.T) {
	e := newEnv(t, 0)
	c := NewCommandController(e.d, e.cmds)

	rec := doPush(t, c, `{"device_id":"bot_1","type":"create_group","params":{"name":"team"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/admin/command/queue?deviceid=bot_1", nil)
	list := httptest.NewRecorder()
	c.Queue(list, req)
	require.Equal(t, http.StatusOK, list.Code)

	var out []map[string]any
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "create_group", out[0]["type"])
	assert.Equal(t, float64(206), out[0]["code"])
	assert.Equal(t, models.StatusPending, out[0]["status"])

	req = httptest.NewRequest(http.MethodGet, "/admin/command/queue", nil)
	missing := httptest.NewRecorder()
	c.Queue(missing, req)
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}
