package profile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMappingsKeepDocumentOrder(t *testing.T) {
	doc := `{
		"Y": {"source": "Y", "target": "A", "enabled": true},
		"A": {"source": "A", "target": "B", "enabled": false},
		"LeftThumbX": {"target": "RightThumbX"}
	}`

	var m Mappings
	require.NoError(t, json.Unmarshal([]byte(doc), &m))
	require.Len(t, m, 3)
	assert.Equal(t, "Y", m[0].Source)
	assert.Equal(t, "A", m[1].Source)
	assert.False(t, m[1].Enabled)
	assert.Equal(t, "LeftThumbX", m[2].Source, "source falls back to key")
	assert.True(t, m[2].Enabled, "enabled defaults to true")

	out, err := json.Marshal(m)
	require.NoError(t, err)
	assert.Equal(t,
		`{"Y":{"source":"Y","target":"A","enabled":true},"A":{"source":"A","target":"B","enabled":false},"LeftThumbX":{"source":"LeftThumbX","target":"RightThumbX","enabled":true}}`,
		string(out))
}

func TestMappingsSetRemove(t *testing.T) {
	var m Mappings
	m.Set(ButtonMapping{Source: "A", Target: "B", Enabled: true})
	m.Set(ButtonMapping{Source: "X", Target: "Y", Enabled: true})
	m.Set(ButtonMapping{Source: "A", Target: "X", Enabled: true})

	require.Len(t, m, 2)
	got, ok := m.Get("A")
	require.True(t, ok)
	assert.Equal(t, "X", got.Target)
	assert.Equal(t, "A", m[0].Source)

	m.Remove("A")
	m.Remove("missing")
	assert.Equal(t, Mappings{{Source: "X", Target: "Y", Enabled: true}}, m)
}

func TestMappingsRejectNonObject(t *testing.T) {
	var m Mappings
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &m))
	require.NoError(t, json.Unmarshal([]byte(`null`), &m))
	assert.Nil(t, m)
}

func TestNewDefaults(t *testing.T) {
	p := New("Racing", "Forza")
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, DefaultVibrationIntensity, p.VibrationIntensity)
	assert.Equal(t, DefaultLEDColor, p.LEDColor)
	assert.False(t, p.CreatedDate.IsZero())
	assert.NotEqual(t, p.ID, New("Racing", "Forza").ID)
}

func TestCloneIsDeep(t *testing.T) {
	p := New("a", "b")
	p.ButtonMappings.Set(ButtonMapping{Source: "A", Target: "B", Enabled: true})
	c := p.Clone()
	c.ButtonMappings[0].Target = "Y"
	assert.Equal(t, "B", p.ButtonMappings[0].Target)
}

func TestStoreLoadMissingFile(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "none", "profiles.json"))
	profiles, err := st.Load()
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestStoreSaveUpsertDelete(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "cfg", "profiles.json"))
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	st.now = func() time.Time { return fixed }

	p := New("Shooter", "Halo")
	p.ButtonMappings.Set(ButtonMapping{Source: "A", Target: "B", Enabled: true})
	saved, err := st.Save(p)
	require.NoError(t, err)
	assert.Equal(t, fixed, saved.ModifiedDate)

	p.Name = "Shooter v2"
	_, err = st.Save(p)
	require.NoError(t, err)

	other := New("Other", "")
	_, err = st.Save(other)
	require.NoError(t, err)

	profiles, err := st.Load()
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "Shooter v2", profiles[0].Name)
	assert.Equal(t, "B", profiles[0].ButtonMappings[0].Target)

	found, err := st.Find("Other")
	require.NoError(t, err)
	assert.Equal(t, other.ID, found.ID)

	require.NoError(t, st.Delete(p.ID))
	require.NoError(t, st.Delete("unknown"))
	_, err = st.Find(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreRejectsMissingID(t *testing.T) {
	st := NewStore(filepath.Join(t.TempDir(), "profiles.json"))
	_, err := st.Save(GameProfile{Name: "x"})
	assert.ErrorIs(t, err, ErrMissingID)
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewStore(path).Load()
	assert.Error(t, err)
}
