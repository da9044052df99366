package input

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jupiterrider/purego-sdl3/sdl"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"go.uber.org/zap"
)

// joystickNamespace seeds the name-based GUIDs given to SDL joysticks.
var joystickNamespace = uuid.MustParse("5f0c1e2a-8d3b-4c7e-9a61-2b4f7d9e0c13")

type rumbleRequest struct {
	id        uint32
	low, high uint16
	duration  time.Duration
	done      chan error
}

type openJoystick struct {
	joystick *sdl.Joystick
	info     JoystickInfo
}

// SDLRuntime owns the SDL3 joystick subsystem. Every SDL call happens on
// the goroutine running Run; other goroutines read the snapshots it
// publishes.
type SDLRuntime struct {
	logger   *zap.Logger
	interval time.Duration

	// Owned by the Run goroutine.
	open  map[sdl.JoystickID]*openJoystick
	slots [FixedSlots]bool

	mu      sync.RWMutex
	running bool
	infos   map[uint32]JoystickInfo
	samples map[uint32]JoystickSample

	rumbles chan rumbleRequest

	initOnce    sync.Once
	initialized chan struct{}
	readyOnce   sync.Once
	ready       chan struct{}
}

func NewSDLRuntime(interval time.Duration, logger *zap.Logger) *SDLRuntime {
	return &SDLRuntime{
		logger:   logger,
		interval: interval,
		open:     make(map[sdl.JoystickID]*openJoystick),
		infos:    make(map[uint32]JoystickInfo),
		samples:  make(map[uint32]JoystickSample),
		rumbles:  make(chan rumbleRequest),

		initialized: make(chan struct{}),
		ready:       make(chan struct{}),
	}
}

// Initialized is closed once Run has attempted SDL initialization,
// whether or not it succeeded.
func (r *SDLRuntime) Initialized() <-chan struct{} {
	return r.initialized
}

// Ready is closed once the joysticks attached at startup are open, or once
// Run gives up.
func (r *SDLRuntime) Ready() <-chan struct{} {
	return r.ready
}

func (r *SDLRuntime) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Run initializes SDL and pumps joystick events and samples until ctx is
// done. It locks the calling goroutine to its OS thread.
func (r *SDLRuntime) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer r.markReady()

	ok := sdl.Init(sdl.InitJoystick)
	r.initOnce.Do(func() { close(r.initialized) })
	if !ok {
		return fmt.Errorf("%w: SDL init: %s", ErrEnumeration, sdl.GetError())
	}
	defer sdl.Quit()

	r.logger.Info("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}
	r.setRunning(true)
	defer r.setRunning(false)
	r.markReady()

	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		case req := <-r.rumbles:
			req.done <- r.rumble(req)
			continue
		default:
		}

		r.processEvents()
		r.sampleAll()
		sdl.DelayNS(uint64(r.interval.Nanoseconds()))
	}
}

func (r *SDLRuntime) setRunning(v bool) {
	r.mu.Lock()
	r.running = v
	if !v {
		r.infos = make(map[uint32]JoystickInfo)
		r.samples = make(map[uint32]JoystickSample)
	}
	r.mu.Unlock()
}

// Joysticks returns the joysticks currently open.
func (r *SDLRuntime) Joysticks() []JoystickInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]JoystickInfo, 0, len(r.infos))
	for _, info := range r.infos {
		out = append(out, info)
	}
	return out
}

// Sample returns the latest sample taken for joystick id.
func (r *SDLRuntime) Sample(id uint32) (JoystickSample, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.samples[id]
	if !ok {
		return JoystickSample{}, fmt.Errorf("%w: joystick %d has no sample", ErrRead, id)
	}
	return JoystickSample{
		Axes:    append([]int16(nil), s.Axes...),
		Buttons: append([]bool(nil), s.Buttons...),
		Hats:    append([]uint8(nil), s.Hats...),
	}, nil
}

// Rumble asks the SDL goroutine to drive the motors of joystick id.
func (r *SDLRuntime) Rumble(id uint32, low, high uint16, duration time.Duration) error {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("%w: SDL not running", ErrUnsupported)
	}

	req := rumbleRequest{id: id, low: low, high: high, duration: duration, done: make(chan error, 1)}
	select {
	case r.rumbles <- req:
		return <-req.done
	case <-time.After(time.Second):
		return fmt.Errorf("%w: SDL busy", ErrUnsupported)
	}
}

func (r *SDLRuntime) rumble(req rumbleRequest) error {
	for _, oj := range r.open {
		if oj.info.ID != req.id {
			continue
		}
		if !sdl.RumbleJoystick(oj.joystick, req.low, req.high, uint32(req.duration.Milliseconds())) {
			return fmt.Errorf("%w: rumble: %s", ErrUnsupported, sdl.GetError())
		}
		return nil
	}
	return fmt.Errorf("%w: joystick %d is not open", ErrUnsupported, req.id)
}

func (r *SDLRuntime) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *SDLRuntime) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.open[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.logger.Warn("Failed to open joystick",
			zap.Uint32("joystick", uint32(instanceID)),
			zap.String("sdl", sdl.GetError()))
		return
	}

	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	name := sdl.GetJoystickName(js)

	info := JoystickInfo{
		ID:             uint32(sdl.GetJoystickID(js)),
		Name:           name,
		VendorID:       vendorID,
		ProductID:      productID,
		Slot:           NoSlot,
		BatteryPercent: -1,
		ConnectedAt:    time.Now(),
	}
	if gamepad.IsXInput(vendorID, productID) {
		info.Slot = r.claimSlot()
	}
	if info.Slot == NoSlot {
		key := fmt.Sprintf("%04x:%04x:%d:%s", vendorID, productID, info.ID, name)
		info.GUID = uuid.NewSHA1(joystickNamespace, []byte(key)).String()
	}

	r.open[instanceID] = &openJoystick{joystick: js, info: info}
	r.mu.Lock()
	r.infos[info.ID] = info
	r.mu.Unlock()

	r.logger.Info("Joystick connected",
		zap.String("name", name),
		zap.String("vid", fmt.Sprintf("%04X", vendorID)),
		zap.String("pid", fmt.Sprintf("%04X", productID)),
		zap.Int("slot", info.Slot),
		zap.Int32("axes", int32(sdl.GetNumJoystickAxes(js))),
		zap.Int32("buttons", int32(sdl.GetNumJoystickButtons(js))),
		zap.Int32("hats", int32(sdl.GetNumJoystickHats(js))))
}

func (r *SDLRuntime) claimSlot() int {
	for i, used := range r.slots {
		if !used {
			r.slots[i] = true
			return i
		}
	}
	return NoSlot
}

func (r *SDLRuntime) removeJoystick(instanceID sdl.JoystickID) {
	oj, exists := r.open[instanceID]
	if !exists {
		return
	}

	r.logger.Info("Joystick disconnected", zap.String("name", oj.info.Name))
	sdl.CloseJoystick(oj.joystick)
	delete(r.open, instanceID)
	if oj.info.Slot != NoSlot {
		r.slots[oj.info.Slot] = false
	}

	r.mu.Lock()
	delete(r.infos, oj.info.ID)
	delete(r.samples, oj.info.ID)
	r.mu.Unlock()
}

func (r *SDLRuntime) closeAll() {
	for id := range r.open {
		r.removeJoystick(id)
	}
}

func (r *SDLRuntime) sampleAll() {
	for _, oj := range r.open {
		js := oj.joystick
		if !sdl.JoystickConnected(js) {
			continue
		}

		numAxes := int32(sdl.GetNumJoystickAxes(js))
		numButtons := int32(sdl.GetNumJoystickButtons(js))
		numHats := int32(sdl.GetNumJoystickHats(js))

		s := JoystickSample{
			Axes:    make([]int16, 0, numAxes),
			Buttons: make([]bool, 0, numButtons),
			Hats:    make([]uint8, 0, numHats),
		}
		for i := int32(0); i < numAxes; i++ {
			s.Axes = append(s.Axes, sdl.GetJoystickAxis(js, i))
		}
		for i := int32(0); i < numButtons; i++ {
			s.Buttons = append(s.Buttons, sdl.GetJoystickButton(js, i))
		}
		for i := int32(0); i < numHats; i++ {
			s.Hats = append(s.Hats, sdl.GetJoystickHat(js, i))
		}

		info := oj.info
		if info.Slot != NoSlot {
			var percent int32 = -1
			sdl.GetJoystickPowerInfo(js, &percent)
			info.BatteryPercent = int(percent)
			oj.info = info
		}

		r.mu.Lock()
		r.samples[info.ID] = s
		r.infos[info.ID] = info
		r.mu.Unlock()
	}
}
