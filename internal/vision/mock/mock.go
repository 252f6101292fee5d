// Package mock provides deterministic fakes of the vision interfaces for testing.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/kozaktomas/light-recon/internal/vision"
)

// MockDetector is a mock implementation of vision.Detector.
// By default it reports one face covering the whole image.
type MockDetector struct {
	mu    sync.Mutex
	calls int
	sizes []image.Rectangle

	// DetectFunc overrides the default behaviour when set.
	DetectFunc func(img image.Image) ([]vision.Detection, error)
	// Score is used for the default full-frame detection (0.9 when zero).
	Score float64

	// Error injection
	DetectError error
}

// NewMockDetector creates a detector that finds one face per image.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// Detect returns the configured detections.
func (m *MockDetector) Detect(ctx context.Context, img image.Image) ([]vision.Detection, error) {
	m.mu.Lock()
	m.calls++
	m.sizes = append(m.sizes, img.Bounds())
	m.mu.Unlock()

	if m.DetectError != nil {
		return nil, m.DetectError
	}
	if m.DetectFunc != nil {
		return m.DetectFunc(img)
	}

	score := m.Score
	if score == 0 {
		score = 0.9
	}
	b := img.Bounds()
	return []vision.Detection{{
		BBox:  []float64{float64(b.Min.X), float64(b.Min.Y), float64(b.Max.X), float64(b.Max.Y)},
		Score: score,
	}}, nil
}

// Calls returns how many times Detect ran.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Sizes returns the bounds of every image passed to Detect.
func (m *MockDetector) Sizes() []image.Rectangle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]image.Rectangle(nil), m.sizes...)
}

// MockEmbedder is a mock implementation of vision.Embedder.
// By default the embedding is the mean colour of the crop scaled to [0, 1],
// so images of the same solid colour embed to the same vector.
type MockEmbedder struct {
	mu    sync.Mutex
	calls int

	// EmbedFunc overrides the default behaviour when set.
	EmbedFunc func(face image.Image) ([]float32, error)

	// Error injection
	EmbedError error
}

// NewMockEmbedder creates a colour-mean embedder.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// Embed returns the configured embedding.
func (m *MockEmbedder) Embed(ctx context.Context, face image.Image) ([]float32, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.EmbedError != nil {
		return nil, m.EmbedError
	}
	if face == nil || face.Bounds().Empty() {
		return nil, vision.ErrEmptyCrop
	}
	if m.EmbedFunc != nil {
		return m.EmbedFunc(face)
	}
	return MeanColor(face), nil
}

// Calls returns how many times Embed ran.
func (m *MockEmbedder) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// MeanColor averages the RGB channels of img into a 3-dimensional vector.
func MeanColor(img image.Image) []float32 {
	b := img.Bounds()
	var r, g, bl float64
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return []float32{0, 0, 0}
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += float64(cr)
			g += float64(cg)
			bl += float64(cb)
		}
	}
	const full = 0xffff
	return []float32{float32(r / n / full), float32(g / n / full), float32(bl / n / full)}
}
