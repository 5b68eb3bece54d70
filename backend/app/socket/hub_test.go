package socket

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"robot-gateway/backend/global"
)

func TestMain(m *testing.M) {
	global.Logger = zerolog.Nop()
	os.Exit(m.Run())
}

type fakeConn struct {
	mu     sync.Mutex
	sent   [][]byte
	closed bool
}

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) RemoteAddr() string { return "test" }

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

func TestRegisterSupersedesPreviousConnection(t *testing.T) {
	h := NewHub(time.Minute)
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	h.Register("bot_1", c1)
	h.Register("bot_1", c2)

	assert.True(t, c1.isClosed())
	assert.False(t, c2.isClosed())
	assert.Equal(t, 1, h.ConnectionCount())

	conn, err := h.Send("bot_1", []byte("hi"))
	require.NoError(t, err)
	assert.Same(t, c2, conn)
	assert.Equal(t, 0, c1.sentCount())
	assert.Equal(t, 1, c2.sentCount())
}

func TestUnregisterIgnoresStaleConnection(t *testing.T) {
	h := NewHub(time.Minute)
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	h.Register("bot_1", c1)
	h.Register("bot_1", c2)

	// The superseded connection's read loop exits late and tries to clean
	// up; it must not evict the replacement.
	h.Unregister("bot_1", c1)
	assert.True(t, h.IsOnline("bot_1"))

	h.Unregister("bot_1", c2)
	assert.False(t, h.IsOnline("bot_1"))
	assert.True(t, c2.isClosed())

	// Idempotent.
	h.Unregister("bot_1", c2)
	assert.Equal(t, 0, h.ConnectionCount())
}

func TestSendOffline(t *testing.T) {
	h := NewHub(time.Minute)
	conn, err := h.Send("bot_1", []byte("hi"))
	assert.ErrorIs(t, err, ErrDeviceOffline)
	assert.Nil(t, conn)
}

func TestTouchHeartbeatUnknownDevice(t *testing.T) {
	h := NewHub(time.Minute)
	h.TouchHeartbeat("bot_1")
	assert.False(t, h.IsOnline("bot_1"))
}

func TestRegisterHookRunsAfterEntryVisible(t *testing.T) {
	h := NewHub(time.Minute)
	sawOnline := false
	h.SetOnRegister(func(deviceID string) {
		sawOnline = h.IsOnline(deviceID)
	})
	h.Register("bot_1", &fakeConn{})
	assert.True(t, sawOnline)
}

func TestSweepEvictsSilentDevices(t *testing.T) {
	h := NewHub(20 * time.Millisecond)
	stale := &fakeConn{}
	h.Register("bot_stale", stale)

	time.Sleep(30 * time.Millisecond)
	fresh := &fakeConn{}
	h.Register("bot_fresh", fresh)

	h.sweep()

	assert.False(t, h.IsOnline("bot_stale"))
	assert.True(t, stale.isClosed())
	assert.True(t, h.IsOnline("bot_fresh"))
	assert.False(t, fresh.isClosed())
}

func TestHeartbeatKeepsDeviceAlive(t *testing.T) {
	h := NewHub(30 * time.Millisecond)
	c := &fakeConn{}
	h.Register("bot_1", c)

	for i := 0; i < 3; i++ {
		time.Sleep(15 * time.Millisecond)
		h.TouchHeartbeat("bot_1")
		h.sweep()
		require.True(t, h.IsOnline("bot_1"))
	}
}

func TestSnapshotAliveFlag(t *testing.T) {
	h := NewHub(20 * time.Millisecond)
	h.Register("bot_1", &fakeConn{})

	info := h.ConnectionInfo("bot_1")
	require.NotNil(t, info)
	assert.True(t, info.Alive)

	time.Sleep(30 * time.Millisecond)
	info = h.ConnectionInfo("bot_1")
	require.NotNil(t, info)
	assert.False(t, info.Alive)

	snap := h.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "bot_1", snap[0].DeviceID)
	assert.False(t, snap[0].Alive)

	assert.Nil(t, h.ConnectionInfo("bot_2"))
}
