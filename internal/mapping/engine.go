// Package mapping transforms raw controller snapshots through a profile's
// button mapping table.
package mapping

import (
	"sync"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/profile"
	"go.uber.org/zap"
)

type route struct {
	source gamepad.Button
	target gamepad.Button
}

// Table is a compiled profile. A nil Table transforms as passthrough.
type Table struct {
	profile     profile.GameProfile
	routes      []route
	hasEnabled  bool
	passthrough [len(gamepad.ContinuousButtons)]bool
}

// Compile builds the dispatch table for p's enabled mappings, in table order.
// Entries naming an unknown button are skipped.
func Compile(p profile.GameProfile, logger *zap.Logger) *Table {
	t := &Table{profile: p.Clone()}
	targeted := make(map[gamepad.Button]bool)

	for _, m := range p.ButtonMappings {
		if !m.Enabled {
			continue
		}
		t.hasEnabled = true
		src, ok := gamepad.ParseButton(m.Source)
		if !ok {
			logger.Debug("Ignoring mapping with unknown source",
				zap.String("profile", p.Name), zap.String("source", m.Source))
			continue
		}
		dst, ok := gamepad.ParseButton(m.Target)
		if !ok {
			logger.Debug("Ignoring mapping with unknown target",
				zap.String("profile", p.Name), zap.String("target", m.Target))
			continue
		}
		t.routes = append(t.routes, route{source: src, target: dst})
		targeted[dst] = true
	}

	for i, b := range gamepad.ContinuousButtons {
		t.passthrough[i] = !targeted[b]
	}
	return t
}

// Profile returns the profile the table was compiled from.
func (t *Table) Profile() profile.GameProfile {
	return t.profile.Clone()
}

// Transform maps in to an output snapshot.
//
// Without enabled mappings the input is copied verbatim. Otherwise the output starts
// neutral and every route copies its source field onto its target field,
// later routes winning. Continuous fields no route targets keep the input
// value; digital fields no route targets stay released.
func (t *Table) Transform(in gamepad.ButtonState) gamepad.ButtonState {
	if t == nil || !t.hasEnabled {
		return in
	}

	var out gamepad.ButtonState
	for _, r := range t.routes {
		gamepad.Transfer(&out, r.target, in, r.source)
	}
	for i, b := range gamepad.ContinuousButtons {
		if t.passthrough[i] {
			gamepad.Transfer(&out, b, in, b)
		}
	}
	return out
}

// Engine holds one loaded table per device id.
type Engine struct {
	logger *zap.Logger
	mu     sync.RWMutex
	tables map[string]*Table
}

func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{
		logger: logger,
		tables: make(map[string]*Table),
	}
}

// LoadProfile compiles p and makes it the active profile for deviceID,
// replacing whatever was loaded before.
func (e *Engine) LoadProfile(deviceID string, p profile.GameProfile) {
	t := Compile(p, e.logger)

	e.mu.Lock()
	e.tables[deviceID] = t
	e.mu.Unlock()

	e.logger.Info("Profile loaded",
		zap.String("device", deviceID),
		zap.String("profile", p.Name),
		zap.Int("mappings", len(t.routes)))
}

// ClearProfile returns deviceID to passthrough.
func (e *Engine) ClearProfile(deviceID string) {
	e.mu.Lock()
	delete(e.tables, deviceID)
	e.mu.Unlock()
}

// Profile returns the profile loaded for deviceID.
func (e *Engine) Profile(deviceID string) (profile.GameProfile, bool) {
	e.mu.RLock()
	t, ok := e.tables[deviceID]
	e.mu.RUnlock()
	if !ok {
		return profile.GameProfile{}, false
	}
	return t.Profile(), true
}

// Transform maps in through the table loaded for deviceID.
func (e *Engine) Transform(deviceID string, in gamepad.ButtonState) gamepad.ButtonState {
	e.mu.RLock()
	t := e.tables[deviceID]
	e.mu.RUnlock()
	return t.Transform(in)
}
