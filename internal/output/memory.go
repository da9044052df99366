package output

import (
	"sync"

	"github.com/soar/GameControllerRemap/internal/gamepad"
)

// ReportHistory is how many recent reports a MemoryTarget keeps.
const ReportHistory = 64

// MemoryBackend keeps virtual targets in process. Submitted states are
// recorded as Xbox 360 input reports; only the most recent ReportHistory
// are kept.
type MemoryBackend struct {
	mu      sync.Mutex
	targets map[string]*MemoryTarget
	opened  int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{targets: make(map[string]*MemoryTarget)}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Open(deviceID string, kind gamepad.ControllerType) (Target, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := &MemoryTarget{Kind: kind}
	b.targets[deviceID] = t
	b.opened++
	return t, nil
}

// Opened returns how many targets were ever opened.
func (b *MemoryBackend) Opened() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.opened
}

// Target returns the most recent target opened for deviceID.
func (b *MemoryBackend) Target(deviceID string) (*MemoryTarget, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.targets[deviceID]
	return t, ok
}

type MemoryTarget struct {
	Kind gamepad.ControllerType

	mu        sync.Mutex
	ring      [ReportHistory][]byte
	submitted int
	last      gamepad.ButtonState
	vibration [2]uint8
	closed    bool
}

func (t *MemoryTarget) Submit(s gamepad.ButtonState) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrNoTarget
	}
	t.ring[t.submitted%ReportHistory] = s.Report()
	t.submitted++
	t.last = s
	return nil
}

func (t *MemoryTarget) SetVibration(left, right uint8) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.vibration = [2]uint8{left, right}
	return nil
}

func (t *MemoryTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}

// Reports returns the retained reports, oldest first.
func (t *MemoryTarget) Reports() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := min(t.submitted, ReportHistory)
	out := make([][]byte, 0, n)
	for i := t.submitted - n; i < t.submitted; i++ {
		out = append(out, t.ring[i%ReportHistory])
	}
	return out
}

// Submitted returns how many reports were ever submitted.
func (t *MemoryTarget) Submitted() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submitted
}

// Last returns the last submitted state.
func (t *MemoryTarget) Last() (gamepad.ButtonState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.submitted > 0
}

func (t *MemoryTarget) Vibration() (left, right uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.vibration[0], t.vibration[1]
}

func (t *MemoryTarget) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
