package database

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEmptyLabel     = errors.New("sighting label is required")
	ErrEmptyEmbedding = errors.New("sighting embedding is required")
)

// Sighting is one journal row: a subject entering the identified state
// during a live session.
type Sighting struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Label     string    `json:"label"`
	Distance  float64   `json:"distance"`
	DetScore  float64   `json:"det_score"`
	Embedding []float32 `json:"-"`
	SeenAt    time.Time `json:"seen_at"`
}

// Validate checks the fields every backend requires. A missing ID or
// timestamp is filled in.
func (s *Sighting) Validate() error {
	if strings.TrimSpace(s.Label) == "" {
		return ErrEmptyLabel
	}
	if len(s.Embedding) == 0 {
		return ErrEmptyEmbedding
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.SeenAt.IsZero() {
		s.SeenAt = time.Now()
	}
	return nil
}

// LabelStats aggregates the sightings of one subject.
type LabelStats struct {
	Label     string    `json:"label"`
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}
