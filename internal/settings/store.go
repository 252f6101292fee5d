package settings

import (
	"sync"
)

// Store guards a settings file for concurrent readers and persists every edit.
type Store struct {
	path string

	mu      sync.RWMutex
	current Settings
}

// Open loads path into a Store. A missing file starts from the defaults.
func Open(path string) (*Store, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, current: s}, nil
}

// Path returns the backing file path.
func (st *Store) Path() string {
	return st.path
}

// Get returns a copy of the current settings.
func (st *Store) Get() Settings {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current.clone()
}

// Update applies fn to a copy of the settings and saves the result. Nothing
// changes when fn or the save fails.
func (st *Store) Update(fn func(*Settings) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	next := st.current.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.normalize()
	if err := Save(st.path, next); err != nil {
		return err
	}
	st.current = next
	return nil
}

// Reset restores the defaults and saves them.
func (st *Store) Reset() error {
	return st.Update(func(s *Settings) error {
		*s = Defaults()
		return nil
	})
}

func (s Settings) clone() Settings {
	out := s
	out.ThreatLevels = append([]Option(nil), s.ThreatLevels...)
	out.StatusTypes = append([]Option(nil), s.StatusTypes...)
	out.GenderOptions = append([]string(nil), s.GenderOptions...)
	return out
}
