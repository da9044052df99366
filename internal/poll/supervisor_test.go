package poll

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/input"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var testConfig = Config{Interval: time.Millisecond, Backoff: 50 * time.Millisecond}

func joystick(id string) gamepad.ControllerDevice {
	return gamepad.ControllerDevice{InstanceID: id, Backend: gamepad.BackendJoystick}
}

type collector struct {
	mu      sync.Mutex
	samples []StateChanged
}

func (c *collector) add(ev StateChanged) {
	c.mu.Lock()
	c.samples = append(c.samples, ev)
	c.mu.Unlock()
}

func (c *collector) count(id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.samples {
		if s.DeviceID == id {
			n++
		}
	}
	return n
}

func TestPollEmitsEveryTick(t *testing.T) {
	var reads atomic.Int32
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		reads.Add(1)
		return gamepad.ButtonState{A: true}, nil
	})
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, testConfig, zaptest.NewLogger(t))
	defer s.StopAll()

	col := &collector{}
	s.StateChanged().Subscribe(col.add)

	s.Start(joystick("J"))
	s.Start(joystick("J"))
	assert.True(t, s.IsPolling("J"))

	require.Eventually(t, func() bool { return col.count("J") >= 5 }, time.Second, time.Millisecond,
		"identical samples are still emitted")

	st, ok := s.CurrentState("J")
	require.True(t, ok)
	assert.True(t, st.A)

	_, ok = s.CurrentState("unknown")
	assert.False(t, ok)
}

func TestPollUnsupportedIdles(t *testing.T) {
	var reads atomic.Int32
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		reads.Add(1)
		return gamepad.ButtonState{}, input.ErrUnsupported
	})
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, testConfig, zaptest.NewLogger(t))
	defer s.StopAll()

	col := &collector{}
	s.StateChanged().Subscribe(col.add)

	s.Start(joystick("J"))
	s.Start(gamepad.ControllerDevice{InstanceID: "H", Backend: gamepad.BackendHID})

	require.Eventually(t, func() bool { return reads.Load() >= 5 }, time.Second, time.Millisecond,
		"unsupported reads keep the nominal cadence")
	assert.Zero(t, col.count("J"))
	assert.Zero(t, col.count("H"))
	assert.True(t, s.IsPolling("H"))
	_, ok := s.CurrentState("J")
	assert.False(t, ok)
}

func TestPollBacksOffOnError(t *testing.T) {
	var reads atomic.Int32
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		n := reads.Add(1)
		if n == 1 {
			return gamepad.ButtonState{}, errors.New("unplugged")
		}
		return gamepad.ButtonState{B: true}, nil
	})
	cfg := Config{Interval: time.Millisecond, Backoff: 100 * time.Millisecond}
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, cfg, zaptest.NewLogger(t))
	defer s.StopAll()

	col := &collector{}
	s.StateChanged().Subscribe(col.add)

	start := time.Now()
	s.Start(joystick("J"))
	require.Eventually(t, func() bool { return col.count("J") >= 1 }, time.Second, time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond, "second read waits for the backoff")
}

func TestPollStop(t *testing.T) {
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		return gamepad.ButtonState{}, nil
	})
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, testConfig, zaptest.NewLogger(t))

	col := &collector{}
	s.StateChanged().Subscribe(col.add)

	s.Start(joystick("J"))
	require.Eventually(t, func() bool { return col.count("J") >= 1 }, time.Second, time.Millisecond)

	s.Stop("J")
	s.Stop("J")
	s.Stop("never")
	assert.False(t, s.IsPolling("J"))

	time.Sleep(10 * time.Millisecond)
	after := col.count("J")
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, col.count("J"))

	s.Start(joystick("J"))
	assert.True(t, s.IsPolling("J"))
	s.StopAll()
	assert.False(t, s.IsPolling("J"))
}

func TestStopForgetsCurrentState(t *testing.T) {
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		return gamepad.ButtonState{A: true}, nil
	})
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, testConfig, zaptest.NewLogger(t))

	hasState := func(id string) func() bool {
		return func() bool {
			_, ok := s.CurrentState(id)
			return ok
		}
	}

	s.Start(joystick("J"))
	s.Start(joystick("K"))
	require.Eventually(t, hasState("J"), time.Second, time.Millisecond)
	require.Eventually(t, hasState("K"), time.Second, time.Millisecond)

	s.Stop("J")
	assert.Never(t, hasState("J"), 30*time.Millisecond, time.Millisecond)
	assert.True(t, hasState("K")())

	s.StopAll()
	_, ok := s.CurrentState("K")
	assert.False(t, ok)
}

func TestCurrentStateIsCopy(t *testing.T) {
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		return gamepad.ButtonState{LeftThumbX: 100}, nil
	})
	s := NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader}, testConfig, zaptest.NewLogger(t))
	defer s.StopAll()

	s.Start(joystick("J"))
	require.Eventually(t, func() bool {
		_, ok := s.CurrentState("J")
		return ok
	}, time.Second, time.Millisecond)

	st, _ := s.CurrentState("J")
	st.LeftThumbX = -1
	again, _ := s.CurrentState("J")
	assert.Equal(t, int16(100), again.LeftThumbX)
}
