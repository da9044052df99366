package remap

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/soar/GameControllerRemap/internal/event"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/input"
	"github.com/soar/GameControllerRemap/internal/mapping"
	"github.com/soar/GameControllerRemap/internal/output"
	"github.com/soar/GameControllerRemap/internal/poll"
	"github.com/soar/GameControllerRemap/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

type fakePoller struct {
	mu      sync.Mutex
	started []string
	stopped []string
	active  map[string]bool
}

func newFakePoller() *fakePoller {
	return &fakePoller{active: make(map[string]bool)}
}

func (p *fakePoller) Start(dev gamepad.ControllerDevice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, dev.InstanceID)
	p.active[dev.InstanceID] = true
}

func (p *fakePoller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = append(p.stopped, id)
	delete(p.active, id)
}

func (p *fakePoller) isPolling(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active[id]
}

type fixture struct {
	orch    *Orchestrator
	poller  *fakePoller
	feed    *event.Feed[poll.StateChanged]
	backend *output.MemoryBackend
}

func newFixture(t *testing.T, backend output.Backend) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		poller: newFakePoller(),
		feed:   &event.Feed[poll.StateChanged]{},
	}
	if mb, ok := backend.(*output.MemoryBackend); ok {
		f.backend = mb
	}
	sink := output.NewSink(backend, logger)
	f.orch = New(f.poller, f.feed, mapping.NewEngine(logger), sink, logger)
	return f
}

func device(id string) gamepad.ControllerDevice {
	return gamepad.ControllerDevice{InstanceID: id, Backend: gamepad.BackendJoystick}
}

func swapAB() *profile.GameProfile {
	p := profile.New("swap", "")
	p.ButtonMappings.Set(profile.ButtonMapping{Source: "A", Target: "B", Enabled: true})
	p.ButtonMappings.Set(profile.ButtonMapping{Source: "B", Target: "A", Enabled: true})
	return &p
}

func TestStartIsIdempotent(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())

	require.NoError(t, f.orch.Start(device("D"), nil))
	require.NoError(t, f.orch.Start(device("D"), swapAB()))

	assert.True(t, f.orch.IsRemapping("D"))
	assert.Equal(t, 1, f.backend.Opened())
	assert.Equal(t, []string{"D"}, f.poller.started)

	b, ok := f.orch.Binding("D")
	require.True(t, ok)
	assert.Nil(t, b.Profile, "second start changed nothing")
}

func TestStopUnboundIsNoop(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())
	assert.NotPanics(t, func() { f.orch.Stop("nothing") })
	assert.Empty(t, f.poller.stopped)
}

func TestBackendUnavailable(t *testing.T) {
	f := newFixture(t, nil)

	for _, id := range []string{"A", "B"} {
		err := f.orch.Start(device(id), swapAB())
		assert.ErrorIs(t, err, output.ErrBackendUnavailable)
		assert.False(t, f.orch.IsRemapping(id))
		assert.False(t, f.poller.isPolling(id))
	}
	assert.Empty(t, f.poller.started)
}

func TestForwardsTransformedState(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())
	require.NoError(t, f.orch.Start(device("D"), swapAB()))
	require.NoError(t, f.orch.Start(device("E"), nil))

	f.feed.Publish(poll.StateChanged{DeviceID: "D", State: gamepad.ButtonState{A: true, LeftTrigger: 9}})
	f.feed.Publish(poll.StateChanged{DeviceID: "E", State: gamepad.ButtonState{A: true}})
	f.feed.Publish(poll.StateChanged{DeviceID: "unbound", State: gamepad.ButtonState{A: true}})

	td, _ := f.backend.Target("D")
	got, ok := td.Last()
	require.True(t, ok)
	assert.Equal(t, gamepad.ButtonState{B: true, LeftTrigger: 9}, got)

	te, _ := f.backend.Target("E")
	got, ok = te.Last()
	require.True(t, ok)
	assert.Equal(t, gamepad.ButtonState{A: true}, got, "profiles are scoped per device")

	_, ok = f.backend.Target("unbound")
	assert.False(t, ok)
}

func TestStopDropsLateSamples(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())
	require.NoError(t, f.orch.Start(device("D"), swapAB()))
	target, _ := f.backend.Target("D")

	f.orch.Stop("D")
	assert.False(t, f.orch.IsRemapping("D"))
	assert.Equal(t, []string{"D"}, f.poller.stopped)
	assert.True(t, target.Closed())

	f.feed.Publish(poll.StateChanged{DeviceID: "D", State: gamepad.ButtonState{A: true}})
	assert.Empty(t, target.Reports())

	require.NoError(t, f.orch.Start(device("D"), nil))
	assert.Equal(t, 2, f.backend.Opened())
	fresh, _ := f.backend.Target("D")
	f.feed.Publish(poll.StateChanged{DeviceID: "D", State: gamepad.ButtonState{A: true}})
	got, _ := fresh.Last()
	assert.True(t, got.A, "old profile was cleared on stop")
}

func TestSetProfile(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())
	require.NoError(t, f.orch.Start(device("D"), nil))
	target, _ := f.backend.Target("D")

	f.orch.SetProfile("D", swapAB())
	f.feed.Publish(poll.StateChanged{DeviceID: "D", State: gamepad.ButtonState{B: true}})
	got, _ := target.Last()
	assert.Equal(t, gamepad.ButtonState{A: true}, got)

	b, _ := f.orch.Binding("D")
	require.NotNil(t, b.Profile)
	assert.Equal(t, "swap", b.Profile.Name)

	f.orch.SetProfile("D", nil)
	f.feed.Publish(poll.StateChanged{DeviceID: "D", State: gamepad.ButtonState{B: true}})
	got, _ = target.Last()
	assert.Equal(t, gamepad.ButtonState{B: true}, got)

	f.orch.SetProfile("unbound", swapAB())
	assert.False(t, f.orch.IsRemapping("unbound"))
}

func TestStopAllAndClose(t *testing.T) {
	f := newFixture(t, output.NewMemoryBackend())
	require.NoError(t, f.orch.Start(device("B"), nil))
	require.NoError(t, f.orch.Start(device("A"), nil))
	assert.Equal(t, []string{"A", "B"}, f.orch.Active())

	f.orch.Close()
	assert.Empty(t, f.orch.Active())

	require.NoError(t, f.orch.Start(device("C"), nil))
	f.feed.Publish(poll.StateChanged{DeviceID: "C", State: gamepad.ButtonState{A: true}})
	target, _ := f.backend.Target("C")
	assert.Empty(t, target.Reports(), "closed orchestrator no longer listens")
}

func TestEndToEndWithSupervisor(t *testing.T) {
	logger := zap.NewNop()
	reader := input.ReaderFunc(func(ctx context.Context, dev gamepad.ControllerDevice) (gamepad.ButtonState, error) {
		return gamepad.ButtonState{A: true, RightThumbX: 1234}, nil
	})
	sup := poll.NewSupervisor(map[gamepad.InputBackend]input.Reader{gamepad.BackendJoystick: reader},
		poll.Config{Interval: time.Millisecond, Backoff: 10 * time.Millisecond}, logger)
	defer sup.StopAll()

	backend := output.NewMemoryBackend()
	orch := New(sup, sup.StateChanged(), mapping.NewEngine(logger), output.NewSink(backend, logger), logger)
	defer orch.Close()

	require.NoError(t, orch.Start(device("D"), swapAB()))
	assert.True(t, sup.IsPolling("D"))

	target, _ := backend.Target("D")
	require.Eventually(t, func() bool { return len(target.Reports()) >= 3 }, time.Second, time.Millisecond)
	got, _ := target.Last()
	assert.Equal(t, gamepad.ButtonState{B: true, RightThumbX: 1234}, got)

	orch.Stop("D")
	assert.False(t, sup.IsPolling("D"))
}
