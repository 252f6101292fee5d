// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"

	"github.com/kozaktomas/light-recon/internal/database"
)

// MockSightingStore is an in-memory implementation of database.SightingStore
type MockSightingStore struct {
	mu        sync.RWMutex
	sightings []database.Sighting
	closed    bool

	// Error injection
	SaveError  error
	ListError  error
	CountError error
	StatsError error
}

// NewMockSightingStore creates a new empty mock store
func NewMockSightingStore() *MockSightingStore {
	return &MockSightingStore{}
}

func (m *MockSightingStore) Backend() string {
	return "mock"
}

// SaveSighting validates and stores a copy of s
func (m *MockSightingStore) SaveSighting(ctx context.Context, s *database.Sighting) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if err := s.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.Embedding = append([]float32(nil), s.Embedding...)
	m.sightings = append(m.sightings, cp)
	return nil
}

// All returns every stored sighting in insertion order
func (m *MockSightingStore) All() []database.Sighting {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]database.Sighting(nil), m.sightings...)
}

// ListSightings returns the newest sightings of label first
func (m *MockSightingStore) ListSightings(ctx context.Context, label string, limit int) ([]database.Sighting, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Sighting
	for _, s := range m.sightings {
		if s.Label == label {
			result = append(result, s)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].SeenAt.After(result[j].SeenAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ListSessionSightings returns the sightings of one session in insertion order
func (m *MockSightingStore) ListSessionSightings(ctx context.Context, sessionID string) ([]database.Sighting, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []database.Sighting
	for _, s := range m.sightings {
		if s.SessionID.String() == sessionID {
			result = append(result, s)
		}
	}
	return result, nil
}

// CountSightings counts sightings of label, or all when empty
func (m *MockSightingStore) CountSightings(ctx context.Context, label string) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	if label == "" {
		return len(m.sightings), nil
	}
	n := 0
	for _, s := range m.sightings {
		if s.Label == label {
			n++
		}
	}
	return n, nil
}

// Stats aggregates the stored sightings per label
func (m *MockSightingStore) Stats(ctx context.Context) ([]database.LabelStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	byLabel := map[string]*database.LabelStats{}
	for _, s := range m.sightings {
		st, ok := byLabel[s.Label]
		if !ok {
			st = &database.LabelStats{Label: s.Label, FirstSeen: s.SeenAt, LastSeen: s.SeenAt}
			byLabel[s.Label] = st
		}
		st.Count++
		if s.SeenAt.Before(st.FirstSeen) {
			st.FirstSeen = s.SeenAt
		}
		if s.SeenAt.After(st.LastSeen) {
			st.LastSeen = s.SeenAt
		}
	}

	result := make([]database.LabelStats, 0, len(byLabel))
	for _, st := range byLabel {
		result = append(result, *st)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Label < result[j].Label })
	return result, nil
}

func (m *MockSightingStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockSightingStore) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}
