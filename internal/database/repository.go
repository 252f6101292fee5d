package database

import (
	"context"
)

// SightingWriter records sightings
type SightingWriter interface {
	// SaveSighting stores one sighting, assigning an ID when it has none
	SaveSighting(ctx context.Context, s *Sighting) error
}

// SightingReader provides read-only access to the sightings journal
type SightingReader interface {
	// ListSightings returns the newest sightings of label first; limit <= 0 means no limit
	ListSightings(ctx context.Context, label string, limit int) ([]Sighting, error)
	// CountSightings returns the number of sightings of label, or of all labels when empty
	CountSightings(ctx context.Context, label string) (int, error)
	// Stats returns per-label aggregates ordered by label
	Stats(ctx context.Context) ([]LabelStats, error)
	// ListSessionSightings returns every sighting of one live session in order
	ListSessionSightings(ctx context.Context, sessionID string) ([]Sighting, error)
}

// SightingStore is a journal backend
type SightingStore interface {
	SightingReader
	SightingWriter
	// Backend names the storage engine, e.g. "postgres" or "sqlite"
	Backend() string
	Close() error
}
