package socket

import (
	"context"
	"errors"
	"sync"
	"time"

	"robot-gateway/backend/app/metrics"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/global"
	"robot-gateway/network"
)

var ErrDeviceOffline = errors.New("device is not connected")

type entry struct {
	conn          network.Conn
	connectedAt   time.Time
	lastHeartbeat time.Time
}

// ConnInfo is a point-in-time view of one registered connection.
type ConnInfo struct {
	DeviceID      string    `json:"device_id"`
	ConnectedAt   time.Time `json:"connected_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Alive         bool      `json:"alive"`
}

// Hub is the connection registry: the single source of truth for which
// robots are reachable right now. It owns the transport handles it holds;
// replacing or removing an entry closes the underlying connection.
type Hub struct {
	mu   sync.RWMutex
	byID map[string]*entry

	heartbeatTimeout time.Duration
	onRegister       func(deviceID string)
	presence         *repo.PresenceRepository // optional redis mirror
}

func NewHub(heartbeatTimeout time.Duration) *Hub {
	if heartbeatTimeout <= 0 {
		heartbeatTimeout = 60 * time.Second
	}
	return &Hub{
		byID:             make(map[string]*entry),
		heartbeatTimeout: heartbeatTimeout,
	}
}

// SetOnRegister installs the dispatcher's reconnect-flush hook. It runs
// after every successful Register, outside the hub lock.
func (h *Hub) SetOnRegister(fn func(deviceID string)) { h.onRegister = fn }

// SetPresence enables the redis presence mirror.
func (h *Hub) SetPresence(p *repo.PresenceRepository) { h.presence = p }

// Register stores the connection for the device, superseding any previous
// one. The replaced connection is closed; at most one live connection per
// device id ever exists.
func (h *Hub) Register(deviceID string, c network.Conn) {
	now := time.Now()
	h.mu.Lock()
	prev := h.byID[deviceID]
	h.byID[deviceID] = &entry{conn: c, connectedAt: now, lastHeartbeat: now}
	h.mu.Unlock()

	if prev != nil {
		_ = prev.conn.Close()
		global.Logger.Info().Str("device", deviceID).Msg("superseded previous connection")
	}
	global.Logger.Info().Str("device", deviceID).Str("remote", c.RemoteAddr()).Msg("robot connected")
	metrics.ConnectedRobots.Set(float64(h.ConnectionCount()))

	h.mirrorOnline(deviceID)
	if h.onRegister != nil {
		h.onRegister(deviceID)
	}
}

// Unregister removes the device's entry if it still refers to the given
// connection, so a stale close from a superseded connection cannot evict
// its replacement. Idempotent.
func (h *Hub) Unregister(deviceID string, c network.Conn) {
	h.mu.Lock()
	cur, ok := h.byID[deviceID]
	if ok && (c == nil || cur.conn == c) {
		delete(h.byID, deviceID)
	} else {
		ok = false
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	_ = cur.conn.Close()
	h.mirrorOffline(deviceID)
	metrics.ConnectedRobots.Set(float64(h.ConnectionCount()))
	global.Logger.Info().Str("device", deviceID).Msg("robot disconnected")
}

// TouchHeartbeat refreshes the device's liveness timestamp. Unknown devices
// are a no-op.
func (h *Hub) TouchHeartbeat(deviceID string) {
	h.mu.Lock()
	e, ok := h.byID[deviceID]
	if ok {
		e.lastHeartbeat = time.Now()
	}
	h.mu.Unlock()
	if ok {
		h.mirrorOnline(deviceID)
	}
}

func (h *Hub) IsOnline(deviceID string) bool {
	h.mu.RLock()
	_, ok := h.byID[deviceID]
	h.mu.RUnlock()
	return ok
}

// OnlineDevices lists the ids of all connected robots.
func (h *Hub) OnlineDevices() []string {
	h.mu.RLock()
	out := make([]string, 0, len(h.byID))
	for id := range h.byID {
		out = append(out, id)
	}
	h.mu.RUnlock()
	return out
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byID)
}

// Snapshot returns a copy-on-read view of every connection; concurrent
// registrations never block on enumeration.
func (h *Hub) Snapshot() []ConnInfo {
	now := time.Now()
	h.mu.RLock()
	out := make([]ConnInfo, 0, len(h.byID))
	for id, e := range h.byID {
		out = append(out, ConnInfo{
			DeviceID:      id,
			ConnectedAt:   e.connectedAt,
			LastHeartbeat: e.lastHeartbeat,
			Alive:         now.Sub(e.lastHeartbeat) < h.heartbeatTimeout,
		})
	}
	h.mu.RUnlock()
	return out
}

// ConnectionInfo returns the view for one device, nil when unknown.
func (h *Hub) ConnectionInfo(deviceID string) *ConnInfo {
	now := time.Now()
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.byID[deviceID]
	if !ok {
		return nil
	}
	return &ConnInfo{
		DeviceID:      deviceID,
		ConnectedAt:   e.connectedAt,
		LastHeartbeat: e.lastHeartbeat,
		Alive:         now.Sub(e.lastHeartbeat) < h.heartbeatTimeout,
	}
}

// Send writes raw bytes to the device's live connection. The connection used
// is returned so that on failure the caller can evict exactly that one and
// not a replacement registered in the meantime.
func (h *Hub) Send(deviceID string, data []byte) (network.Conn, error) {
	h.mu.RLock()
	e, ok := h.byID[deviceID]
	h.mu.RUnlock()
	if !ok {
		return nil, ErrDeviceOffline
	}
	return e.conn, e.conn.Send(data)
}

// StartSweeper runs the periodic liveness sweep until the context is
// cancelled. Any device silent for the full heartbeat window is evicted and
// its connection closed; this is the only timeout path for stale entries.
func (h *Hub) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				h.sweep()
			}
		}
	}()
}

func (h *Hub) sweep() {
	now := time.Now()
	type stale struct {
		id   string
		conn network.Conn
	}
	h.mu.RLock()
	var expired []stale
	for id, e := range h.byID {
		if now.Sub(e.lastHeartbeat) >= h.heartbeatTimeout {
			expired = append(expired, stale{id: id, conn: e.conn})
		}
	}
	h.mu.RUnlock()

	for _, s := range expired {
		global.Logger.Warn().Str("device", s.id).Msg("heartbeat timeout, evicting connection")
		h.Unregister(s.id, s.conn)
	}
}

func (h *Hub) mirrorOnline(deviceID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.SetOnline(ctx, deviceID, h.heartbeatTimeout); err != nil {
		global.Logger.Warn().Err(err).Str("device", deviceID).Msg("presence mirror update failed")
	}
}

func (h *Hub) mirrorOffline(deviceID string) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.presence.SetOffline(ctx, deviceID); err != nil {
		global.Logger.Warn().Err(err).Str("device", deviceID).Msg("presence mirror delete failed")
	}
}
