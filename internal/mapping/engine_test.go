package mapping

import (
	"testing"

	"github.com/soar/GameControllerRemap/internal/gamepad"
	"github.com/soar/GameControllerRemap/internal/profile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newProfile(mappings ...profile.ButtonMapping) profile.GameProfile {
	p := profile.New("test", "game")
	for _, m := range mappings {
		p.ButtonMappings.Set(m)
	}
	return p
}

func analogInput() gamepad.ButtonState {
	return gamepad.ButtonState{
		LeftTrigger:  12,
		RightTrigger: 250,
		LeftThumbX:   -32768,
		LeftThumbY:   32767,
		RightThumbX:  100,
		RightThumbY:  -100,
	}
}

func TestTransformPassthroughWithoutProfile(t *testing.T) {
	e := NewEngine(zap.NewNop())
	inputs := []gamepad.ButtonState{
		{},
		{A: true, Guide: true, DPadLeft: true},
		analogInput(),
	}
	for _, in := range inputs {
		assert.Equal(t, in, e.Transform("dev", in))
	}

	var nilTable *Table
	assert.Equal(t, inputs[1], nilTable.Transform(inputs[1]))
}

func TestTransformPassthroughWhenNoEnabledMappings(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(profile.ButtonMapping{Source: "A", Target: "B", Enabled: false}))

	in := analogInput()
	in.A = true
	in.Start = true
	assert.Equal(t, in, e.Transform("dev", in))
}

func TestTransformSingleMapping(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(profile.ButtonMapping{Source: "A", Target: "B", Enabled: true}))

	in := analogInput()
	in.A = true
	out := e.Transform("dev", in)

	assert.True(t, out.B)
	assert.False(t, out.A)
	assert.Equal(t, in.LeftTrigger, out.LeftTrigger)
	assert.Equal(t, in.RightTrigger, out.RightTrigger)
	assert.Equal(t, in.LeftThumbX, out.LeftThumbX)
	assert.Equal(t, in.LeftThumbY, out.LeftThumbY)
	assert.Equal(t, in.RightThumbX, out.RightThumbX)
	assert.Equal(t, in.RightThumbY, out.RightThumbY)
}

func TestTransformDropsUnmappedDigitalButtons(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(profile.ButtonMapping{Source: "X", Target: "Y", Enabled: true}))

	in := gamepad.ButtonState{A: true, Start: true, DPadUp: true, X: true}
	out := e.Transform("dev", in)

	assert.Equal(t, gamepad.ButtonState{Y: true}, out)
}

func TestTransformAnalogRemap(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(
		profile.ButtonMapping{Source: "LeftThumbX", Target: "RightThumbX", Enabled: true},
		profile.ButtonMapping{Source: "LeftTrigger", Target: "A", Enabled: true},
	))

	in := analogInput()
	out := e.Transform("dev", in)

	assert.Equal(t, in.LeftThumbX, out.RightThumbX, "targeted axis takes the source value")
	assert.Equal(t, in.LeftThumbX, out.LeftThumbX, "untargeted axis passes through")
	assert.Equal(t, in.LeftTrigger, out.LeftTrigger)
	assert.False(t, out.A, "12 is below the trigger press threshold")

	in.LeftTrigger = 200
	assert.True(t, e.Transform("dev", in).A)
}

func TestTransformLastMappingWins(t *testing.T) {
	p := newProfile(
		profile.ButtonMapping{Source: "A", Target: "Y", Enabled: true},
		profile.ButtonMapping{Source: "B", Target: "Y", Enabled: true},
	)
	table := Compile(p, zap.NewNop())

	assert.False(t, table.Transform(gamepad.ButtonState{A: true}).Y)
	assert.True(t, table.Transform(gamepad.ButtonState{B: true}).Y)
}

func TestTransformIgnoresUnknownNames(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(
		profile.ButtonMapping{Source: "Cross", Target: "A", Enabled: true},
		profile.ButtonMapping{Source: "B", Target: "Share", Enabled: true},
		profile.ButtonMapping{Source: "Start", Target: "Back", Enabled: true},
	))

	out := e.Transform("dev", gamepad.ButtonState{B: true, Start: true})
	assert.Equal(t, gamepad.ButtonState{Back: true}, out)
}

func TestTransformOnlyUnknownNamesStartsNeutral(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(
		profile.ButtonMapping{Source: "Turbo", Target: "B", Enabled: true},
	))

	out := e.Transform("dev", gamepad.ButtonState{A: true, Start: true, LeftTrigger: 9, RightThumbY: -300})
	assert.Equal(t, gamepad.ButtonState{LeftTrigger: 9, RightThumbY: -300}, out)
}

func TestEngineScopesProfilesPerDevice(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("one", newProfile(profile.ButtonMapping{Source: "A", Target: "B", Enabled: true}))
	e.LoadProfile("two", newProfile(profile.ButtonMapping{Source: "A", Target: "X", Enabled: true}))

	in := gamepad.ButtonState{A: true}
	assert.Equal(t, gamepad.ButtonState{B: true}, e.Transform("one", in))
	assert.Equal(t, gamepad.ButtonState{X: true}, e.Transform("two", in))
	assert.Equal(t, in, e.Transform("three", in))

	p, ok := e.Profile("one")
	require.True(t, ok)
	assert.Equal(t, "test", p.Name)

	e.ClearProfile("one")
	_, ok = e.Profile("one")
	assert.False(t, ok)
	assert.Equal(t, in, e.Transform("one", in))
}

func TestLoadProfileReplaces(t *testing.T) {
	e := NewEngine(zap.NewNop())
	e.LoadProfile("dev", newProfile(profile.ButtonMapping{Source: "A", Target: "B", Enabled: true}))
	e.LoadProfile("dev", newProfile(profile.ButtonMapping{Source: "A", Target: "Y", Enabled: true}))

	assert.Equal(t, gamepad.ButtonState{Y: true}, e.Transform("dev", gamepad.ButtonState{A: true}))
}

func TestCompileDoesNotAliasProfile(t *testing.T) {
	p := newProfile(profile.ButtonMapping{Source: "A", Target: "B", Enabled: true})
	table := Compile(p, zap.NewNop())
	p.ButtonMappings[0].Target = "X"

	assert.Equal(t, "B", table.Profile().ButtonMappings[0].Target)
}
