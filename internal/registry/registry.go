// Package registry holds the embedding registry: labelled face vectors built
// from the enrollment dataset and queried by exact nearest neighbour.
package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/kozaktomas/light-recon/internal/facematch"
)

// Unknown is the label reported when no stored vector is close enough.
const Unknown = "Unknown"

// Default thresholds.
const (
	DefaultRecognitionThreshold = 0.8
	DefaultConfidenceThreshold  = 0.5
)

var (
	ErrEmptyVector       = errors.New("empty embedding")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Config carries the thresholds the registry and its builder work with.
type Config struct {
	// RecognitionThreshold is the largest distance (exclusive) still accepted as a match.
	RecognitionThreshold float64
	// ConfidenceThreshold is the detection score a face must exceed to be embedded.
	ConfidenceThreshold float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		RecognitionThreshold: DefaultRecognitionThreshold,
		ConfidenceThreshold:  DefaultConfidenceThreshold,
	}
}

// Entry is one stored vector. A subject contributes one entry per embedded image.
type Entry struct {
	Label  string    `json:"label"`
	Vector []float32 `json:"vector"`
}

// MatchResult is the outcome of resolving one face.
type MatchResult struct {
	Label    string  `json:"label"`
	Known    bool    `json:"known"`
	Distance float64 `json:"distance"`
	Score    float64 `json:"det_score"`
}

// IsUnknown reports whether the face did not resolve to a stored subject.
func (m MatchResult) IsUnknown() bool {
	return !m.Known
}

// UnknownMatch is the result used when nothing was resolved.
func UnknownMatch() MatchResult {
	return MatchResult{Label: Unknown}
}

// Registry is an in-memory set of labelled embeddings. It is filled once by
// a Builder and then only read; rebuilding produces a new Registry.
type Registry struct {
	cfg Config

	mu       sync.RWMutex
	entries  []Entry
	subjects []string
	dim      int
	index    *Index
}

// New creates an empty registry.
func New(cfg Config) *Registry {
	return &Registry{cfg: cfg}
}

// Config returns the thresholds in use.
func (r *Registry) Config() Config {
	return r.cfg
}

// AddSubject records label as known, even if it never gets a vector.
func (r *Registry) AddSubject(label string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addSubjectLocked(label)
}

func (r *Registry) addSubjectLocked(label string) {
	if !slices.Contains(r.subjects, label) {
		r.subjects = append(r.subjects, label)
	}
}

// Add appends a vector for label. All vectors must share the dimension of
// the first one added.
func (r *Registry) Add(label string, vec []float32) error {
	if len(vec) == 0 {
		return ErrEmptyVector
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.dim == 0 {
		r.dim = len(vec)
	} else if len(vec) != r.dim {
		return fmt.Errorf("%w: got %d, registry holds %d", ErrDimensionMismatch, len(vec), r.dim)
	}

	r.addSubjectLocked(label)
	r.entries = append(r.entries, Entry{Label: label, Vector: slices.Clone(vec)})
	r.index = nil
	return nil
}

// Query resolves vec against every stored vector. The closest vector wins,
// the first inserted one on exact ties, and it is only accepted when its
// distance is strictly below the recognition threshold.
func (r *Registry) Query(vec []float32) MatchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 || len(vec) != r.dim {
		return UnknownMatch()
	}

	best := -1
	bestDist := 0.0
	for i, e := range r.entries {
		d := facematch.EuclideanDistance(vec, e.Vector)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}

	if bestDist < r.cfg.RecognitionThreshold {
		return MatchResult{Label: r.entries[best].Label, Known: true, Distance: bestDist}
	}
	return MatchResult{Label: Unknown, Distance: bestDist}
}

// Len returns the number of stored vectors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Dim returns the vector dimension, 0 while empty.
func (r *Registry) Dim() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dim
}

// Labels returns every known subject in discovery order, including subjects
// that contributed no vectors.
func (r *Registry) Labels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.subjects)
}

// Counts returns the number of vectors per known subject.
func (r *Registry) Counts() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, len(r.subjects))
	for _, s := range r.subjects {
		counts[s] = 0
	}
	for _, e := range r.entries {
		counts[e.Label]++
	}
	return counts
}

// Entries returns a copy of the stored vectors in insertion order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		out[i] = Entry{Label: e.Label, Vector: slices.Clone(e.Vector)}
	}
	return out
}
