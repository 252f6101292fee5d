// Package live runs the recognition loop: it polls frames, resolves the
// primary face against the registry and tracks the resulting display state.
package live

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/kozaktomas/light-recon/internal/camera"
	"github.com/kozaktomas/light-recon/internal/facematch"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/registry"
	"github.com/kozaktomas/light-recon/internal/vision"
)

// DetectionScale is the factor frames are shrunk by before detection.
const DetectionScale = 0.5

// ErrDetection wraps detector failures. The frame is dropped but the session
// continues.
var ErrDetection = errors.New("face detection failed")

type Config struct {
	ConfidenceThreshold float64
	// ProcessEveryN runs the pipeline on one of every N polled frames.
	ProcessEveryN int
}

func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: registry.DefaultConfidenceThreshold,
		ProcessEveryN:       2,
	}
}

// Querier resolves an embedding to a subject.
type Querier interface {
	Query(vec []float32) registry.MatchResult
}

// Face is one confident detection on a processed frame.
type Face struct {
	// BBox is [x1, y1, x2, y2] in full-frame pixels, clipped to the frame.
	BBox      [4]int               `json:"bbox"`
	Score     float64              `json:"det_score"`
	Match     registry.MatchResult `json:"match"`
	Embedding []float32            `json:"-"`
}

// FrameOutcome is the result of one Poll.
type FrameOutcome struct {
	Index     int
	Processed bool
	// Faces holds the overlay: fresh on processed frames, the previous
	// overlay on skipped ones.
	Faces []Face
	// Primary is the resolution of the first face, nil when no face was
	// found or the frame was skipped.
	Primary *registry.MatchResult
	Frame   image.Image
}

// Matcher turns polled frames into match results.
type Matcher struct {
	cfg      Config
	source   camera.Source
	detector vision.Detector
	embedder vision.Embedder
	registry Querier
	logger   *slog.Logger

	polled int
	last   []Face
}

func NewMatcher(cfg Config, source camera.Source, detector vision.Detector, embedder vision.Embedder, reg Querier, logger *slog.Logger) *Matcher {
	if cfg.ProcessEveryN < 1 {
		cfg.ProcessEveryN = 1
	}
	return &Matcher{
		cfg:      cfg,
		source:   source,
		detector: detector,
		embedder: embedder,
		registry: reg,
		logger:   logging.OrDefault(logger),
	}
}

// Poll reads one frame and processes it when it is due. A source error is
// returned as is; a detector error is wrapped in ErrDetection.
func (m *Matcher) Poll(ctx context.Context) (FrameOutcome, error) {
	frame, err := m.source.Read()
	if err != nil {
		return FrameOutcome{}, err
	}

	out := FrameOutcome{Index: m.polled, Frame: frame}
	due := m.polled%m.cfg.ProcessEveryN == 0
	m.polled++

	if !due {
		out.Faces = m.last
		return out, nil
	}

	faces, err := m.Process(ctx, frame)
	if err != nil {
		out.Faces = m.last
		return out, err
	}
	m.last = faces
	out.Processed = true
	out.Faces = faces
	if len(faces) > 0 {
		primary := faces[0].Match
		out.Primary = &primary
	}
	return out, nil
}

// Process runs detection on a downscaled copy of frame and resolves every
// confident face. Faces whose crop or embedding fails resolve to Unknown.
func (m *Matcher) Process(ctx context.Context, frame image.Image) ([]Face, error) {
	small := vision.Scale(frame, DetectionScale)
	dets, err := m.detector.Detect(ctx, small)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDetection, err)
	}

	bounds := frame.Bounds()
	faces := []Face{}
	for _, d := range vision.Confident(dets, m.cfg.ConfidenceThreshold) {
		box := facematch.ScaleBBox(d.BBox, 1/DetectionScale)
		r := facematch.ClipBBox(shift(box, bounds.Min), bounds)

		face := Face{
			BBox:  [4]int{r.Min.X, r.Min.Y, r.Max.X, r.Max.Y},
			Score: d.Score,
		}
		vec, err := m.embed(ctx, frame, r)
		if err != nil {
			m.logger.Debug("face degraded to unknown", "bbox", face.BBox, "error", err)
			face.Match = registry.UnknownMatch()
		} else {
			face.Embedding = vec
			face.Match = m.registry.Query(vec)
		}
		face.Match.Score = d.Score
		faces = append(faces, face)
	}
	return faces, nil
}

func (m *Matcher) embed(ctx context.Context, frame image.Image, r image.Rectangle) ([]float32, error) {
	crop, err := vision.Crop(frame, r)
	if err != nil {
		return nil, err
	}
	return m.embedder.Embed(ctx, crop)
}

// Reset forgets the overlay and restarts the frame cadence.
func (m *Matcher) Reset() {
	m.polled = 0
	m.last = nil
}

func shift(bbox []float64, off image.Point) []float64 {
	if off == (image.Point{}) || !facematch.ValidBBox(bbox) {
		return bbox
	}
	dx, dy := float64(off.X), float64(off.Y)
	return []float64{bbox[0] + dx, bbox[1] + dy, bbox[2] + dx, bbox[3] + dy}
}
