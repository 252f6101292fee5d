// Package enroll captures frames of a new subject and writes them to the
// dataset as a labelled identity.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kozaktomas/light-recon/internal/camera"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/vision"
)

const (
	// MaxCaptures caps auto-capture for a session.
	MaxCaptures = 10
	// AutoCaptureCadence is the number of polled frames between auto-captures.
	AutoCaptureCadence = 60
	// MinCaptures is the smallest number of frames Finalize accepts.
	MinCaptures = 3
)

var (
	ErrEmptyLabel           = errors.New("label is required")
	ErrInvalidLabel         = errors.New("label must not contain path separators or '..'")
	ErrInsufficientCaptures = errors.New("insufficient captures")
)

// Rebuilder is signalled after a subject was written to the dataset.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// Fields are the optional profile values entered during enrollment. Empty
// values fall back to the profile defaults.
type Fields struct {
	Age         int
	Gender      string
	Occupation  string
	Nationality string
	Status      string
	ThreatLevel string
	Notes       string
}

type Config struct {
	AutoCapture         bool
	ConfidenceThreshold float64
}

// Session holds the frames captured for one subject.
type Session struct {
	cfg       Config
	source    camera.Source
	profiles  *profile.Store
	rebuilder Rebuilder
	logger    *slog.Logger
	now       func() time.Time

	frames []image.Image
	auto   bool
}

// NewSession creates a session reading from source. Subjects are written
// under the dataset directory of profiles.
func NewSession(cfg Config, source camera.Source, profiles *profile.Store, rebuilder Rebuilder, logger *slog.Logger) *Session {
	return &Session{
		cfg:       cfg,
		source:    source,
		profiles:  profiles,
		rebuilder: rebuilder,
		logger:    logging.OrDefault(logger),
		now:       time.Now,
		auto:      cfg.AutoCapture,
	}
}

// CaptureOne reads one frame and keeps it.
func (s *Session) CaptureOne() error {
	frame, err := s.source.Read()
	if err != nil {
		return fmt.Errorf("failed to read frame: %w", err)
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *Session) shouldAutoCapture(frameIndex int, faceDetected bool) bool {
	return s.auto && faceDetected && frameIndex%AutoCaptureCadence == 0 && len(s.frames) < MaxCaptures
}

// Tick captures a frame when auto-capture is on, a face is in view, the
// frame index falls on the cadence and the cap has not been reached.
func (s *Session) Tick(frameIndex int, faceDetected bool) (bool, error) {
	if !s.shouldAutoCapture(frameIndex, faceDetected) {
		return false, nil
	}
	if err := s.CaptureOne(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) SetAutoCapture(on bool) {
	s.auto = on
}

// ToggleAutoCapture flips auto-capture and returns the new value.
func (s *Session) ToggleAutoCapture() bool {
	s.auto = !s.auto
	return s.auto
}

func (s *Session) AutoCapture() bool {
	return s.auto
}

// Count returns the number of captured frames.
func (s *Session) Count() int {
	return len(s.frames)
}

// Reset drops every captured frame, which also lifts the auto-capture cap.
func (s *Session) Reset() {
	s.frames = nil
}

// ValidateLabel trims label and checks it can name a dataset directory.
func ValidateLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", ErrEmptyLabel
	}
	if !profile.ValidLabel(label) {
		return "", fmt.Errorf("%q: %w", label, ErrInvalidLabel)
	}
	return label, nil
}

// Finalize writes the captured frames as <label>_<n>.jpg together with a
// fresh profile.json, then rebuilds the registry. Nothing is written when
// validation fails.
func (s *Session) Finalize(ctx context.Context, label string, fields Fields) error {
	label, err := ValidateLabel(label)
	if err != nil {
		return err
	}
	if len(s.frames) < MinCaptures {
		return fmt.Errorf("%w: have %d, need at least %d", ErrInsufficientCaptures, len(s.frames), MinCaptures)
	}

	root := s.profiles.Root()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("failed to create dataset directory: %w", err)
	}
	dir := filepath.Join(root, label)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create subject directory: %w", err)
	}

	for i, frame := range s.frames {
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.jpg", label, i+1))
		if err := vision.WriteJPEG(path, frame); err != nil {
			return fmt.Errorf("failed to save capture %d: %w", i+1, err)
		}
	}

	p := profile.Profile{
		Name:        label,
		Age:         fields.Age,
		Gender:      fields.Gender,
		Occupation:  fields.Occupation,
		Nationality: fields.Nationality,
		Status:      fields.Status,
		ThreatLevel: fields.ThreatLevel,
		Notes:       fields.Notes,
		Sightings:   0,
	}
	p.Touch(s.now())
	if err := s.profiles.Save(label, p); err != nil {
		return err
	}

	count := len(s.frames)
	s.frames = nil
	s.logger.Info("subject enrolled", "label", label, "images", count, "dir", dir)

	if s.rebuilder != nil {
		if err := s.rebuilder.Rebuild(ctx); err != nil {
			return fmt.Errorf("subject %s saved but registry rebuild failed: %w", label, err)
		}
	}
	return nil
}
