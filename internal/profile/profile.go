package profile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultVibrationIntensity = 100
	DefaultLEDColor           = "#0078D4"
)

// ButtonMapping routes one source field to one target field.
type ButtonMapping struct {
	Source  string `json:"source"`
	Target  string `json:"target"`
	Enabled bool   `json:"enabled"`
}

// Mappings is a profile's mapping table. It is keyed by source name and keeps
// insertion order, which is also the order mappings are applied in.
type Mappings []ButtonMapping

// Get returns the mapping for source.
func (m Mappings) Get(source string) (ButtonMapping, bool) {
	for _, bm := range m {
		if bm.Source == source {
			return bm, true
		}
	}
	return ButtonMapping{}, false
}

// Set inserts bm, replacing an existing entry with the same source in place.
func (m *Mappings) Set(bm ButtonMapping) {
	for i := range *m {
		if (*m)[i].Source == bm.Source {
			(*m)[i] = bm
			return
		}
	}
	*m = append(*m, bm)
}

// Remove deletes the entry for source, if any.
func (m *Mappings) Remove(source string) {
	for i := range *m {
		if (*m)[i].Source == source {
			*m = append((*m)[:i], (*m)[i+1:]...)
			return
		}
	}
}

// MarshalJSON encodes the table as an object keyed by source, in order.
func (m Mappings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, bm := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(bm.Source)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(bm)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by source, keeping document order.
func (m *Mappings) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("buttonMappings: expected object, got %v", tok)
	}

	out := Mappings{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("buttonMappings: expected key, got %v", tok)
		}
		bm := ButtonMapping{Enabled: true}
		if err := dec.Decode(&bm); err != nil {
			return fmt.Errorf("buttonMappings[%s]: %w", key, err)
		}
		if bm.Source == "" {
			bm.Source = key
		}
		out.Set(bm)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*m = out
	return nil
}

// GameProfile is a named remapping configuration.
type GameProfile struct {
	ID                      string    `json:"id"`
	Name                    string    `json:"name"`
	GameName                string    `json:"gameName"`
	ButtonMappings          Mappings  `json:"buttonMappings"`
	AdaptiveTriggersEnabled bool      `json:"adaptiveTriggersEnabled"`
	VibrationIntensity      int       `json:"vibrationIntensity"`
	LEDColor                string    `json:"ledColor"`
	CreatedDate             time.Time `json:"createdDate"`
	ModifiedDate            time.Time `json:"modifiedDate"`
}

// New returns a profile with a fresh id and default haptics.
func New(name, gameName string) GameProfile {
	now := time.Now()
	return GameProfile{
		ID:                 uuid.NewString(),
		Name:               name,
		GameName:           gameName,
		ButtonMappings:     Mappings{},
		VibrationIntensity: DefaultVibrationIntensity,
		LEDColor:           DefaultLEDColor,
		CreatedDate:        now,
		ModifiedDate:       now,
	}
}

// Clone returns a deep copy of p.
func (p GameProfile) Clone() GameProfile {
	if p.ButtonMappings != nil {
		p.ButtonMappings = append(Mappings(nil), p.ButtonMappings...)
	}
	return p
}
