// Package poll runs one fixed-cadence read loop per observed controller.
package poll

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/soar/GameControllerRemap/internal/event"
	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/input"
	"go.uber.org/zap"
)

// StateChanged carries one sample read from a device.
type StateChanged struct {
	DeviceID string              `json:"deviceId"`
	State    gamepad.ButtonState `json:"state"`
}

// Config sets the loop cadence.
type Config struct {
	Interval time.Duration
	Backoff  time.Duration
}

type session struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Supervisor owns the polling goroutines, keyed by device id.
type Supervisor struct {
	readers map[gamepad.InputBackend]input.Reader
	cfg     Config
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session

	stateMu sync.RWMutex
	last    map[string]gamepad.ButtonState

	changed event.Feed[StateChanged]
}

func NewSupervisor(readers map[gamepad.InputBackend]input.Reader, cfg Config, logger *zap.Logger) *Supervisor {
	return &Supervisor{
		readers:  readers,
		cfg:      cfg,
		logger:   logger,
		sessions: make(map[string]*session),
		last:     make(map[string]gamepad.ButtonState),
	}
}

// StateChanged fires for every successful read, whether or not the sample
// differs from the previous one.
func (s *Supervisor) StateChanged() *event.Feed[StateChanged] {
	return &s.changed
}

// Start begins polling dev. It does nothing when dev is already polled.
func (s *Supervisor) Start(dev gamepad.ControllerDevice) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[dev.InstanceID]; ok {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{cancel: cancel, done: make(chan struct{})}
	s.sessions[dev.InstanceID] = sess
	go s.loop(ctx, dev.Clone(), sess.done)

	s.logger.Info("Polling started",
		zap.String("device", dev.InstanceID),
		zap.Stringer("backend", dev.Backend),
		zap.Duration("interval", s.cfg.Interval))
}

// Stop cancels polling for id. A read already in progress may still
// publish one sample after Stop returns.
func (s *Supervisor) Stop(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return
	}
	sess.cancel()
	s.forget(id)
	s.logger.Info("Polling stopped", zap.String("device", id))
}

// StopAll cancels every loop and waits for them to exit.
func (s *Supervisor) StopAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	for id, sess := range sessions {
		<-sess.done
		s.forget(id)
	}
}

// forget drops the cached sample for id. The loop stores samples only while
// its context is live, so nothing is cached again once it is cancelled.
func (s *Supervisor) forget(id string) {
	s.stateMu.Lock()
	delete(s.last, id)
	s.stateMu.Unlock()
}

// IsPolling reports whether a loop is active for id.
func (s *Supervisor) IsPolling(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	return ok
}

// CurrentState returns a copy of the last sample read from id.
func (s *Supervisor) CurrentState(id string) (gamepad.ButtonState, bool) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	st, ok := s.last[id]
	return st.Clone(), ok
}

func (s *Supervisor) loop(ctx context.Context, dev gamepad.ControllerDevice, done chan struct{}) {
	defer close(done)

	reader := s.readers[dev.Backend]
	timer := time.NewTimer(0)
	defer timer.Stop()

	failing := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		wait := s.cfg.Interval
		if reader != nil {
			st, err := reader.ReadState(ctx, dev)
			switch {
			case err == nil:
				if failing {
					s.logger.Info("Device readable again", zap.String("device", dev.InstanceID))
					failing = false
				}
				s.stateMu.Lock()
				if ctx.Err() == nil {
					s.last[dev.InstanceID] = st
				}
				s.stateMu.Unlock()
				s.changed.Publish(StateChanged{DeviceID: dev.InstanceID, State: st})
			case errors.Is(err, input.ErrUnsupported):
			default:
				if !failing {
					s.logger.Warn("Device read failed, backing off",
						zap.String("device", dev.InstanceID),
						zap.Duration("backoff", s.cfg.Backoff),
						zap.Error(err))
					failing = true
				}
				wait = s.cfg.Backoff
			}
		}
		timer.Reset(wait)
	}
}
