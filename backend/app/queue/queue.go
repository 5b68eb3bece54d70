// Package queue holds undelivered robot commands, one bounded priority
// queue per device. Lower priority values dequeue first; commands with equal
// priority leave in arrival order.
package queue

import (
	"container/heap"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultMaxPerDevice bounds each device's queue. The queue rejects new
// commands when full so callers see backpressure instead of silent loss.
const DefaultMaxPerDevice = 1000

var ErrQueueFull = errors.New("command queue full for device")

// Item is one queued command, carrying the pre-encoded wire payload so the
// dispatcher can deliver it without another marshal step.
type Item struct {
	CommandID string
	DeviceID  string
	Priority  int
	Payload   []byte
	Retries   int // ack-timeout requeues so far

	seq uint64 // arrival order, preserved across requeue
}

type itemHeap []*Item

func (h itemHeap) Len() int { return len(h) }
func (h itemHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}
func (h itemHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *itemHeap) Push(x any)   { *h = append(*h, x.(*Item)) }
func (h *itemHeap) Pop() any {
	old := *h
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return it
}

type deviceQueue struct {
	mu    sync.Mutex
	items itemHeap
}

// Queue is the set of per-device command queues. The outer lock only guards
// the device map; each device's heap has its own mutex so a slow device
// never stalls enqueue/dequeue for the others.
type Queue struct {
	mu      sync.RWMutex
	devices map[string]*deviceQueue
	max     int
	seq     atomic.Uint64
}

func New(maxPerDevice int) *Queue {
	if maxPerDevice <= 0 {
		maxPerDevice = DefaultMaxPerDevice
	}
	return &Queue{devices: make(map[string]*deviceQueue), max: maxPerDevice}
}

func (q *Queue) device(deviceID string) *deviceQueue {
	q.mu.RLock()
	dq, ok := q.devices[deviceID]
	q.mu.RUnlock()
	if ok {
		return dq
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if dq, ok = q.devices[deviceID]; ok {
		return dq
	}
	dq = &deviceQueue{}
	q.devices[deviceID] = dq
	return dq
}

// Enqueue appends a command for the device. Queuing is valid for devices
// never seen before; the per-device queue is created on demand.
func (q *Queue) Enqueue(deviceID, commandID string, priority int, payload []byte) (*Item, error) {
	it := &Item{
		CommandID: commandID,
		DeviceID:  deviceID,
		Priority:  priority,
		Payload:   payload,
		seq:       q.seq.Add(1),
	}
	if err := q.push(it); err != nil {
		return nil, err
	}
	return it, nil
}

// Requeue puts a previously dequeued item back, keeping its original
// arrival order so a failed flush does not reshuffle the queue.
func (q *Queue) Requeue(it *Item) error {
	return q.push(it)
}

func (q *Queue) push(it *Item) error {
	dq := q.device(it.DeviceID)
	dq.mu.Lock()
	defer dq.mu.Unlock()
	if dq.items.Len() >= q.max {
		return ErrQueueFull
	}
	heap.Push(&dq.items, it)
	return nil
}

// DequeueNext pops the highest-priority, earliest-enqueued command for the
// device, or nil when the queue is empty.
func (q *Queue) DequeueNext(deviceID string) *Item {
	q.mu.RLock()
	dq, ok := q.devices[deviceID]
	q.mu.RUnlock()
	if !ok {
		return nil
	}
	dq.mu.Lock()
	defer dq.mu.Unlock()
	if dq.items.Len() == 0 {
		return nil
	}
	return heap.Pop(&dq.items).(*Item)
}

// Remove drops a queued command without delivering it, e.g. when an
// operator cancels it. Returns false if the command is not queued.
func (q *Queue) Remove(deviceID, commandID string) bool {
	q.mu.RLock()
	dq, ok := q.devices[deviceID]
	q.mu.RUnlock()
	if !ok {
		return false
	}
	dq.mu.Lock()
	defer dq.mu.Unlock()
	for i, it := range dq.items {
		if it.CommandID == commandID {
			heap.Remove(&dq.items, i)
			return true
		}
	}
	return false
}

func (q *Queue) Len(deviceID string) int {
	q.mu.RLock()
	dq, ok := q.devices[deviceID]
	q.mu.RUnlock()
	if !ok {
		return 0
	}
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.items.Len()
}

// PendingCounts snapshots queue depth per device. Devices with empty queues
// are omitted.
func (q *Queue) PendingCounts() map[string]int {
	q.mu.RLock()
	devices := make(map[string]*deviceQueue, len(q.devices))
	for id, dq := range q.devices {
		devices[id] = dq
	}
	q.mu.RUnlock()

	out := make(map[string]int, len(devices))
	for id, dq := range devices {
		dq.mu.Lock()
		if n := dq.items.Len(); n > 0 {
			out[id] = n
		}
		dq.mu.Unlock()
	}
	return out
}

// TotalPending sums queue depth across all devices.
func (q *Queue) TotalPending() int {
	total := 0
	for _, n := range q.PendingCounts() {
		total += n
	}
	return total
}
