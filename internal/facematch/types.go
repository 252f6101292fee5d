// Package facematch provides face matching utilities shared between the
// registry, the live loop and the HTTP handlers: box geometry, embedding
// distance and subject name normalization.
package facematch

// Corner indexes into an [x1, y1, x2, y2] bounding box.
const (
	X1 = iota
	Y1
	X2
	Y2
)
