package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/light-recon/internal/facematch"
)

var (
	ErrNotFound     = errors.New("profile not found")
	ErrInvalidLabel = errors.New("invalid label")
)

// Store reads and writes profile.json files under a dataset root.
type Store struct {
	root     string
	defaults Defaults

	// serializes read-modify-write cycles
	mu sync.Mutex
}

// NewStore creates a store rooted at the dataset directory.
func NewStore(root string, d Defaults) *Store {
	return &Store{root: root, defaults: d}
}

// Root returns the dataset directory.
func (s *Store) Root() string {
	return s.root
}

// SetDefaults replaces the defaults used for profiles created from now on.
func (s *Store) SetDefaults(d Defaults) {
	s.mu.Lock()
	s.defaults = d
	s.mu.Unlock()
}

// ValidLabel reports whether label can be used as a subject directory name.
func ValidLabel(label string) bool {
	if label == "" || label == "." || label == ".." {
		return false
	}
	if strings.ContainsAny(label, `/\`) || strings.Contains(label, "..") {
		return false
	}
	return true
}

func (s *Store) path(label string) (string, error) {
	if !ValidLabel(label) {
		return "", fmt.Errorf("%q: %w", label, ErrInvalidLabel)
	}
	return filepath.Join(s.root, label, FileName), nil
}

// Exists reports whether label has a subject directory.
func (s *Store) Exists(label string) bool {
	if !ValidLabel(label) {
		return false
	}
	info, err := os.Stat(filepath.Join(s.root, label))
	return err == nil && info.IsDir()
}

// Get loads the profile of label. Missing fields are defaulted.
func (s *Store) Get(label string) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(label)
}

func (s *Store) getLocked(label string) (Profile, error) {
	path, err := s.path(label)
	if err != nil {
		return Profile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Profile{}, fmt.Errorf("%s: %w", label, ErrNotFound)
		}
		return Profile{}, fmt.Errorf("failed to read profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to parse profile %s: %w", label, err)
	}
	p.applyDefaults(label, s.defaults)
	return p, nil
}

// GetOrCreate returns the stored profile, or a defaulted one when none exists
// or the stored file is unreadable. Nothing is written.
func (s *Store) GetOrCreate(label string) Profile {
	p, err := s.Get(label)
	if err != nil {
		return New(label, s.currentDefaults())
	}
	return p
}

func (s *Store) currentDefaults() Defaults {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.defaults
}

// Save writes the profile of label, creating the subject directory if needed.
func (s *Store) Save(label string, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(label, p)
}

func (s *Store) saveLocked(label string, p Profile) error {
	path, err := s.path(label)
	if err != nil {
		return err
	}
	p.applyDefaults(label, s.defaults)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create subject directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace profile: %w", err)
	}
	return nil
}

// Update applies fn to the current profile (or a new one) and saves it.
func (s *Store) Update(label string, fn func(*Profile) error) (Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getLocked(label)
	if errors.Is(err, ErrNotFound) {
		p = New(label, s.defaults)
	} else if err != nil {
		return Profile{}, err
	}
	if err := fn(&p); err != nil {
		return Profile{}, err
	}
	if err := s.saveLocked(label, p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// RecordSighting increments the sighting counter and sets LastSeen to at.
func (s *Store) RecordSighting(label string, at time.Time) (Profile, error) {
	return s.Update(label, func(p *Profile) error {
		p.Sightings++
		p.Touch(at)
		return nil
	})
}

// Summary is one row of List.
type Summary struct {
	Label   string  `json:"label"`
	Profile Profile `json:"profile"`
}

// List returns the profiles of every subject directory in lexical order.
// Subjects without a profile file get a defaulted one.
func (s *Store) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	result := []Summary{}
	for _, e := range entries {
		if !e.IsDir() || !ValidLabel(e.Name()) {
			continue
		}
		result = append(result, Summary{Label: e.Name(), Profile: s.GetOrCreate(e.Name())})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result, nil
}

// Search returns the subjects whose label or profile name matches query,
// ignoring case and diacritics. An empty query returns everything.
func (s *Store) Search(query string) ([]Summary, error) {
	all, err := s.List()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return all, nil
	}

	var result []Summary
	for _, sum := range all {
		if facematch.NameMatches(sum.Label, query) || facematch.NameMatches(sum.Profile.Name, query) {
			result = append(result, sum)
		}
	}
	return result, nil
}
