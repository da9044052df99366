package hub

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/poll"
	"go.uber.org/zap"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
)

// Sources are the event streams the broadcaster forwards.
type Sources struct {
	States       <-chan poll.StateChanged
	Connected    <-chan gamepad.ControllerDevice
	Disconnected <-chan gamepad.ControllerDevice
}

type deviceState struct {
	last       gamepad.ButtonState
	deltaCount int
}

// Broadcaster turns device events and state samples into hub messages.
// State goes only to the clients watching that device; catalog changes go
// to everyone.
type Broadcaster struct {
	hub    *Hub
	src    Sources
	logger *zap.Logger
	seq    atomic.Int64

	mu     sync.Mutex
	states map[string]*deviceState
}

func NewBroadcaster(h *Hub, src Sources, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		hub:    h,
		src:    src,
		logger: logger,
		states: make(map[string]*deviceState),
	}
}

// Run starts the broadcaster loop until ctx is done. Should be run in a goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := time.NewTicker(fullSyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev := <-b.src.States:
			b.onState(ev)

		case dev := <-b.src.Connected:
			b.broadcast(NewDeviceMessage(b.seq.Add(1), TypeDeviceConnected, dev))

		case dev := <-b.src.Disconnected:
			b.mu.Lock()
			delete(b.states, dev.InstanceID)
			b.mu.Unlock()
			b.broadcast(NewDeviceMessage(b.seq.Add(1), TypeDeviceDisconnected, dev))

		case <-ticker.C:
			b.syncAll()
		}
	}
}

func (b *Broadcaster) onState(ev poll.StateChanged) {
	b.mu.Lock()
	ds, known := b.states[ev.DeviceID]
	if !known {
		ds = &deviceState{}
		b.states[ev.DeviceID] = ds
	}
	delta := gamepad.ComputeDelta(ds.last, ev.State)
	ds.last = ev.State
	full := !known
	if !full && !delta.IsEmpty() {
		ds.deltaCount++
		// Send full sync periodically
		if ds.deltaCount >= deltaCountSync {
			ds.deltaCount = 0
			full = true
		}
	}
	b.mu.Unlock()

	switch {
	case full:
		st := ev.State
		b.sendToWatchers(NewFullMessage(b.seq.Add(1), ev.DeviceID, &st), ev.DeviceID)
	case !delta.IsEmpty():
		b.sendToWatchers(NewDeltaMessage(b.seq.Add(1), ev.DeviceID, delta), ev.DeviceID)
	}
}

func (b *Broadcaster) syncAll() {
	b.mu.Lock()
	snapshot := make(map[string]gamepad.ButtonState, len(b.states))
	for id, ds := range b.states {
		snapshot[id] = ds.last
	}
	b.mu.Unlock()

	for id, st := range snapshot {
		b.sendToWatchers(NewFullMessage(b.seq.Add(1), id, &st), id)
	}
}

// SendInitialState sends the last known state of the watched device to a
// client that just started watching it.
func (b *Broadcaster) SendInitialState(c *Client) {
	id := c.Watching()
	b.mu.Lock()
	ds, ok := b.states[id]
	var st gamepad.ButtonState
	if ok {
		st = ds.last
	}
	b.mu.Unlock()
	if !ok {
		return
	}
	c.Send(NewFullMessage(b.seq.Add(1), id, &st))
}

func (b *Broadcaster) broadcast(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}

func (b *Broadcaster) sendToWatchers(msg *WSMessage, deviceID string) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("Error marshaling message", zap.String("type", msg.Type), zap.Error(err))
		return
	}
	b.hub.BroadcastToWatchers(data, deviceID)
}
