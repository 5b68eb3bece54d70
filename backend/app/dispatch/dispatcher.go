// Package dispatch ties the connection registry and the command queue
// together: it decides between immediate delivery and queuing, drains queues
// on reconnect, matches acknowledgements and retries unacknowledged
// commands.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"robot-gateway/backend/app/dto"
	"robot-gateway/backend/app/metrics"
	"robot-gateway/backend/app/models"
	"robot-gateway/backend/app/queue"
	"robot-gateway/backend/app/repo"
	"robot-gateway/backend/app/socket"
	"robot-gateway/backend/global"
	"robot-gateway/network"
)

// Config carries the dispatcher's timing knobs. Zero values fall back to
// the defaults below.
type Config struct {
	AckTimeout    time.Duration
	RetryInterval time.Duration
	MaxRetries    int
}

const (
	defaultAckTimeout    = 30 * time.Second
	defaultRetryInterval = 5 * time.Second
	defaultMaxRetries    = 3
)

func (c Config) withDefaults() Config {
	if c.AckTimeout <= 0 {
		c.AckTimeout = defaultAckTimeout
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = defaultRetryInterval
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// inflight tracks one delivered command awaiting acknowledgement.
type inflight struct {
	item     *queue.Item
	deviceID string
	deadline time.Time
}

// Dispatcher owns the command state machine:
// pending -> sent -> acked, or sent -> pending on ack timeout (bounded),
// or -> failed when retries are exhausted or the robot reports an error.
type Dispatcher struct {
	hub   *socket.Hub
	queue *queue.Queue
	cmds  *repo.RobotCommandRepository
	cfg   Config

	mu       sync.Mutex
	inflight map[string]*inflight
}

func NewDispatcher(hub *socket.Hub, q *queue.Queue, cmds *repo.RobotCommandRepository, cfg Config) *Dispatcher {
	d := &Dispatcher{
		hub:      hub,
		queue:    q,
		cmds:     cmds,
		cfg:      cfg.withDefaults(),
		inflight: make(map[string]*inflight),
	}
	hub.SetOnRegister(d.FlushDevice)
	return d
}

// newCommandID builds a globally unique, roughly time-ordered command id.
func newCommandID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("cmd_%d_%s", time.Now().UnixMilli(), suffix)
}

// Push accepts a validated command: delivered immediately when the robot is
// online, queued otherwise. It never errors for an offline device; only
// backpressure (queue full) and storage failures surface to the caller.
func (d *Dispatcher) Push(req *dto.PushCommandRequest) (commandID string, delivered bool, err error) {
	timer := prometheus.NewTimer(metrics.PushDuration)
	defer timer.ObserveDuration()
	metrics.CommandsPushed.Inc()

	commandID = newCommandID()
	priority := req.EffectivePriority()

	frame := &network.Frame{
		Type:      network.FrameCommand,
		CommandID: commandID,
		Command:   string(req.Type),
		Code:      req.Type.Code(),
		Target:    req.Target,
		Params:    req.Params,
	}
	payload, err := frame.Encode()
	if err != nil {
		return "", false, fmt.Errorf("encode command: %w", err)
	}

	record := &models.RobotCommand{
		CommandID: commandID,
		DeviceID:  req.DeviceID,
		Type:      string(req.Type),
		Code:      req.Type.Code(),
		Target:    req.Target,
		Params:    string(req.Params),
		Priority:  priority,
		Status:    models.StatusPending,
	}
	if err := d.cmds.Create(record); err != nil {
		return "", false, fmt.Errorf("persist command: %w", err)
	}

	item := &queue.Item{
		CommandID: commandID,
		DeviceID:  req.DeviceID,
		Priority:  priority,
		Payload:   payload,
	}

	if d.hub.IsOnline(req.DeviceID) {
		if err := d.deliver(item); err == nil {
			return commandID, true, nil
		}
		// Transport failed mid-send; the broken connection is already
		// evicted, so queue the command for the reconnect flush.
		global.Logger.Warn().Str("device", req.DeviceID).Str("command", commandID).
			Msg("immediate delivery failed, queuing for reconnect")
	}

	if err := d.enqueue(item); err != nil {
		_ = d.cmds.MarkFailed(commandID, err.Error())
		metrics.CommandsFailed.Inc()
		return "", false, err
	}
	metrics.CommandsQueued.Inc()
	global.Logger.Info().Str("device", req.DeviceID).Str("command", commandID).
		Int("priority", priority).Msg("command queued, robot offline")
	return commandID, false, nil
}

// deliver sends a queued item over the live transport and marks it sent. The
// inflight entry is registered before the write so an ack racing the send is
// matched instead of dropped; a failed write removes it again and evicts the
// exact connection that failed.
func (d *Dispatcher) deliver(item *queue.Item) error {
	d.mu.Lock()
	d.inflight[item.CommandID] = &inflight{
		item:     item,
		deviceID: item.DeviceID,
		deadline: time.Now().Add(d.cfg.AckTimeout),
	}
	d.mu.Unlock()

	conn, err := d.hub.Send(item.DeviceID, item.Payload)
	if err != nil {
		d.mu.Lock()
		delete(d.inflight, item.CommandID)
		d.mu.Unlock()
		if conn != nil {
			d.hub.Unregister(item.DeviceID, conn)
		}
		return err
	}
	if err := d.cmds.MarkSent(item.CommandID); err != nil {
		global.Logger.Error().Err(err).Str("command", item.CommandID).Msg("mark sent failed")
	}
	metrics.CommandsDelivered.Inc()
	global.Logger.Info().Str("device", item.DeviceID).Str("command", item.CommandID).Msg("command delivered")
	return nil
}

func (d *Dispatcher) enqueue(item *queue.Item) error {
	_, err := d.queue.Enqueue(item.DeviceID, item.CommandID, item.Priority, item.Payload)
	metrics.QueueDepth.Set(float64(d.queue.TotalPending()))
	return err
}

// FlushDevice drains the device's queue in priority order. Draining stops at
// the first transport error so a freshly reconnected, possibly unstable
// robot is not flooded; the failed command and everything behind it stay
// queued in their original order.
func (d *Dispatcher) FlushDevice(deviceID string) {
	flushed := 0
	for {
		item := d.queue.DequeueNext(deviceID)
		if item == nil {
			break
		}
		if err := d.deliver(item); err != nil {
			if reqErr := d.queue.Requeue(item); reqErr != nil {
				global.Logger.Error().Err(reqErr).Str("command", item.CommandID).Msg("requeue after failed flush lost command")
				_ = d.cmds.MarkFailed(item.CommandID, reqErr.Error())
				metrics.CommandsFailed.Inc()
			}
			global.Logger.Warn().Err(err).Str("device", deviceID).Int("flushed", flushed).
				Msg("flush halted on transport error")
			break
		}
		flushed++
	}
	metrics.QueueDepth.Set(float64(d.queue.TotalPending()))
	if flushed > 0 {
		global.Logger.Info().Str("device", deviceID).Int("count", flushed).Msg("queued commands flushed")
	}
}

// HandleAck resolves a robot's result for a sent command. Unknown or stale
// command ids are logged and dropped; a robot may legitimately report a
// result for a command that was already requeued or failed.
func (d *Dispatcher) HandleAck(deviceID, commandID string, ok bool, result json.RawMessage, errMsg string) {
	d.mu.Lock()
	fl, tracked := d.inflight[commandID]
	if tracked && fl.deviceID == deviceID {
		delete(d.inflight, commandID)
	} else {
		tracked = false
	}
	d.mu.Unlock()

	if !tracked {
		global.Logger.Warn().Str("device", deviceID).Str("command", commandID).
			Msg("ack for unknown or stale command, dropped")
		return
	}

	if ok {
		if err := d.cmds.MarkAcked(commandID, string(result)); err != nil {
			global.Logger.Error().Err(err).Str("command", commandID).Msg("mark acked failed")
		}
		metrics.CommandsAcked.Inc()
		global.Logger.Info().Str("device", deviceID).Str("command", commandID).Msg("command acknowledged")
		return
	}

	if err := d.cmds.MarkFailed(commandID, errMsg); err != nil {
		global.Logger.Error().Err(err).Str("command", commandID).Msg("mark failed failed")
	}
	metrics.CommandsFailed.Inc()
	global.Logger.Warn().Str("device", deviceID).Str("command", commandID).Str("error", errMsg).
		Msg("robot reported command failure")
}

// Cancel drops a queued command before it reaches the robot. Commands
// already delivered or resolved cannot be cancelled.
func (d *Dispatcher) Cancel(deviceID, commandID string) bool {
	if !d.queue.Remove(deviceID, commandID) {
		return false
	}
	if err := d.cmds.MarkFailed(commandID, "cancelled by operator"); err != nil {
		global.Logger.Error().Err(err).Str("command", commandID).Msg("mark cancelled failed")
	}
	metrics.QueueDepth.Set(float64(d.queue.TotalPending()))
	global.Logger.Info().Str("device", deviceID).Str("command", commandID).Msg("queued command cancelled")
	return true
}

// StartRetryLoop scans in-flight commands for expired ack deadlines until
// the context is cancelled.
func (d *Dispatcher) StartRetryLoop(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.cfg.RetryInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.retryExpired()
			}
		}
	}()
}

func (d *Dispatcher) retryExpired() {
	now := time.Now()
	d.mu.Lock()
	var expired []*inflight
	for id, fl := range d.inflight {
		if now.After(fl.deadline) {
			expired = append(expired, fl)
			delete(d.inflight, id)
		}
	}
	d.mu.Unlock()

	touched := make(map[string]bool)
	for _, fl := range expired {
		item := fl.item
		item.Retries++
		if item.Retries > d.cfg.MaxRetries {
			_ = d.cmds.MarkFailed(item.CommandID, fmt.Sprintf("no ack after %d attempts", item.Retries))
			metrics.CommandsFailed.Inc()
			global.Logger.Warn().Str("device", fl.deviceID).Str("command", item.CommandID).
				Int("retries", item.Retries).Msg("retries exhausted, command failed")
			continue
		}
		if err := d.cmds.MarkPending(item.CommandID, "ack timeout"); err != nil {
			global.Logger.Error().Err(err).Str("command", item.CommandID).Msg("mark pending failed")
		}
		if err := d.queue.Requeue(item); err != nil {
			_ = d.cmds.MarkFailed(item.CommandID, err.Error())
			metrics.CommandsFailed.Inc()
			continue
		}
		metrics.CommandRetries.Inc()
		touched[fl.deviceID] = true
		global.Logger.Info().Str("device", fl.deviceID).Str("command", item.CommandID).
			Int("retry", item.Retries).Msg("ack timeout, command requeued")
	}
	metrics.QueueDepth.Set(float64(d.queue.TotalPending()))

	// Redeliver right away where the robot is still connected.
	for deviceID := range touched {
		if d.hub.IsOnline(deviceID) {
			d.FlushDevice(deviceID)
		}
	}
}

// InflightCount reports commands delivered and awaiting acknowledgement.
func (d *Dispatcher) InflightCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}
