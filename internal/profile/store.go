package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Store persists profiles as a JSON array in a single file.
type Store struct {
	path string
	now  func() time.Time
	mu   sync.RWMutex
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Load returns every stored profile. A missing file yields no profiles.
func (s *Store) Load() ([]GameProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read()
}

func (s *Store) read() ([]GameProfile, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []GameProfile{}, nil
		}
		return nil, fmt.Errorf("read profiles: %w", err)
	}
	if len(data) == 0 {
		return []GameProfile{}, nil
	}

	var profiles []GameProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles: %w", err)
	}
	return profiles, nil
}

func (s *Store) write(profiles []GameProfile) error {
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return fmt.Errorf("encode profiles: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profiles: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// Save inserts or replaces p by id and stamps its modified date.
// The stored copy is returned.
func (s *Store) Save(p GameProfile) (GameProfile, error) {
	if p.ID == "" {
		return GameProfile{}, ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read()
	if err != nil {
		return GameProfile{}, err
	}

	p = p.Clone()
	p.ModifiedDate = s.now()
	if p.CreatedDate.IsZero() {
		p.CreatedDate = p.ModifiedDate
	}

	replaced := false
	for i := range profiles {
		if profiles[i].ID == p.ID {
			profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, p)
	}

	if err := s.write(profiles); err != nil {
		return GameProfile{}, err
	}
	return p, nil
}

// Delete removes the profile with id. Deleting an unknown id is not an error.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.read()
	if err != nil {
		return err
	}

	kept := profiles[:0]
	for _, p := range profiles {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(profiles) {
		return nil
	}
	return s.write(kept)
}

// Find looks a profile up by id, then by name.
func (s *Store) Find(idOrName string) (GameProfile, error) {
	profiles, err := s.Load()
	if err != nil {
		return GameProfile{}, err
	}
	for _, p := range profiles {
		if p.ID == idOrName {
			return p, nil
		}
	}
	for _, p := range profiles {
		if p.Name == idOrName {
			return p, nil
		}
	}
	return GameProfile{}, ErrNotFound
}
