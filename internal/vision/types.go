// Package vision talks to the face detector and face embedding models and
// holds the image helpers needed to feed them.
package vision

import (
	"context"
	"errors"
	"image"
)

// ErrEmptyCrop is returned when a face box clips to nothing.
var ErrEmptyCrop = errors.New("empty face crop")

// Detection is one face candidate returned by the detector.
type Detection struct {
	BBox  []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixels of the image passed to Detect
	Score float64   `json:"det_score"`
}

// Detector finds faces in an image. Detections are returned in model output order.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]Detection, error)
}

// Embedder turns a cropped face into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, face image.Image) ([]float32, error)
}

// detectResponse represents the response from the face detection endpoint
type detectResponse struct {
	FacesCount int         `json:"faces_count"`
	Faces      []Detection `json:"faces"`
	Model      string      `json:"model"`
}

// embedResponse represents the response from the crop embedding endpoint
type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	Model     string    `json:"model"`
}
