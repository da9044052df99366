package hub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/poll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockCommander struct {
	mock.Mock
}

func (m *mockCommander) Watch(id string) error { return m.Called(id).Error(0) }
func (m *mockCommander) Unwatch(id string)     { m.Called(id) }
func (m *mockCommander) StartRemap(id, profile string) error {
	return m.Called(id, profile).Error(0)
}
func (m *mockCommander) StopRemap(id string) error { return m.Called(id).Error(0) }
func (m *mockCommander) SetProfile(id, profile string) error {
	return m.Called(id, profile).Error(0)
}
func (m *mockCommander) SetLED(id, color string) error { return m.Called(id, color).Error(0) }
func (m *mockCommander) SetVibration(id string, left, right uint8) error {
	return m.Called(id, left, right).Error(0)
}

func receive(t *testing.T, c *Client) WSMessage {
	t.Helper()
	select {
	case data := <-c.send:
		var msg WSMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return WSMessage{}
	}
}

func assertSilent(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected message %s", data)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDispatchCommands(t *testing.T) {
	cmd := &mockCommander{}
	c := NewClient(nil, nil, zaptest.NewLogger(t))

	cmd.On("StartRemap", "D", "racing").Return(nil)
	cmd.On("StopRemap", "D").Return(nil)
	cmd.On("SetProfile", "D", "").Return(nil)
	cmd.On("SetLED", "D", "#FF0000").Return(errors.New("no light bar"))
	cmd.On("SetVibration", "D", uint8(10), uint8(20)).Return(nil)

	reply := dispatch(cmd, c, ClientMessage{Type: CmdStartRemap, DeviceID: "D", Profile: "racing"})
	assert.Equal(t, TypeResult, reply.Type)
	assert.Equal(t, CmdStartRemap, reply.Command)
	assert.True(t, reply.OK)

	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdStopRemap, DeviceID: "D"}).OK)
	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdSetProfile, DeviceID: "D"}).OK)
	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdSetVibration, DeviceID: "D", Left: 10, Right: 20}).OK)

	reply = dispatch(cmd, c, ClientMessage{Type: CmdSetLED, DeviceID: "D", Color: "#FF0000"})
	assert.False(t, reply.OK)
	assert.Equal(t, "no light bar", reply.Error)

	reply = dispatch(cmd, c, ClientMessage{Type: "reboot"})
	assert.False(t, reply.OK)
	assert.Contains(t, reply.Error, "reboot")

	cmd.AssertExpectations(t)
}

func TestDispatchWatch(t *testing.T) {
	cmd := &mockCommander{}
	c := NewClient(nil, nil, zaptest.NewLogger(t))

	cmd.On("Watch", "A").Return(nil).Once()
	cmd.On("Watch", "B").Return(nil).Once()
	cmd.On("Watch", "gone").Return(errors.New("unknown device")).Once()
	cmd.On("Unwatch", "A").Once()
	cmd.On("Unwatch", "B").Once()

	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdWatch, DeviceID: "A"}).OK)
	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdWatch, DeviceID: "A"}).OK, "same device is a no-op")
	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdWatch, DeviceID: "B"}).OK)
	assert.Equal(t, "B", c.Watching())

	assert.False(t, dispatch(cmd, c, ClientMessage{Type: CmdWatch, DeviceID: "gone"}).OK)
	assert.Equal(t, "B", c.Watching(), "failed watch keeps the old device")

	assert.True(t, dispatch(cmd, c, ClientMessage{Type: CmdWatch}).OK)
	assert.Empty(t, c.Watching())

	cmd.AssertExpectations(t)
}

type harness struct {
	hub    *Hub
	bc     *Broadcaster
	states chan poll.StateChanged
	conn   chan gamepad.ControllerDevice
	disc   chan gamepad.ControllerDevice
}

func newHarness(t *testing.T) *harness {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := &harness{
		hub:    NewHub(logger),
		states: make(chan poll.StateChanged),
		conn:   make(chan gamepad.ControllerDevice),
		disc:   make(chan gamepad.ControllerDevice),
	}
	h.bc = NewBroadcaster(h.hub, Sources{States: h.states, Connected: h.conn, Disconnected: h.disc}, logger)
	go h.hub.Run(ctx)
	go h.bc.Run(ctx)
	return h
}

func (h *harness) client(t *testing.T, watching string) *Client {
	c := NewClient(h.hub, nil, zaptest.NewLogger(t))
	c.setWatching(watching)
	want := h.hub.ClientCount() + 1
	h.hub.Register(c)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == want }, time.Second, time.Millisecond)
	return c
}

func TestBroadcastStateToWatchers(t *testing.T) {
	h := newHarness(t)
	a := h.client(t, "A")
	other := h.client(t, "B")

	h.states <- poll.StateChanged{DeviceID: "A", State: gamepad.ButtonState{A: true}}
	msg := receive(t, a)
	assert.Equal(t, TypeFull, msg.Type)
	assert.Equal(t, "A", msg.DeviceID)
	require.NotNil(t, msg.Data)
	assert.True(t, msg.Data.A)

	h.states <- poll.StateChanged{DeviceID: "A", State: gamepad.ButtonState{A: true}}
	assertSilent(t, a)

	h.states <- poll.StateChanged{DeviceID: "A", State: gamepad.ButtonState{A: true, LeftTrigger: 7}}
	msg = receive(t, a)
	assert.Equal(t, TypeDelta, msg.Type)
	require.NotNil(t, msg.Changes)
	assert.Nil(t, msg.Changes.Buttons)
	assert.Equal(t, &[2]uint8{7, 0}, msg.Changes.Triggers)

	assertSilent(t, other)
}

func TestBroadcastDeviceEvents(t *testing.T) {
	h := newHarness(t)
	a := h.client(t, "")
	b := h.client(t, "X")

	h.conn <- gamepad.ControllerDevice{InstanceID: "X", Name: "Pad"}
	for _, c := range []*Client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, TypeDeviceConnected, msg.Type)
		require.NotNil(t, msg.Device)
		assert.Equal(t, "Pad", msg.Device.Name)
	}

	h.states <- poll.StateChanged{DeviceID: "X", State: gamepad.ButtonState{}}
	assert.Equal(t, TypeFull, receive(t, b).Type)

	h.disc <- gamepad.ControllerDevice{InstanceID: "X"}
	assert.Equal(t, TypeDeviceDisconnected, receive(t, a).Type)
	assert.Equal(t, TypeDeviceDisconnected, receive(t, b).Type)

	h.states <- poll.StateChanged{DeviceID: "X", State: gamepad.ButtonState{}}
	assert.Equal(t, TypeFull, receive(t, b).Type, "state resets after a disconnect")
}

func TestSendInitialState(t *testing.T) {
	h := newHarness(t)
	watcher := h.client(t, "A")

	late := NewClient(h.hub, nil, zaptest.NewLogger(t))
	late.setWatching("A")
	h.bc.SendInitialState(late)
	assertSilent(t, late)

	h.states <- poll.StateChanged{DeviceID: "A", State: gamepad.ButtonState{RightThumbX: 99}}
	receive(t, watcher)

	h.bc.SendInitialState(late)
	msg := receive(t, late)
	assert.Equal(t, TypeFull, msg.Type)
	assert.Equal(t, int16(99), msg.Data.RightThumbX)
}

func TestUnregisterClosesSend(t *testing.T) {
	h := newHarness(t)
	c := h.client(t, "")
	h.hub.Unregister(c)
	require.Eventually(t, func() bool { return h.hub.ClientCount() == 0 }, time.Second, time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}
