package facematch

import "image"

// ValidBBox reports whether bbox has four coordinates.
func ValidBBox(bbox []float64) bool {
	return len(bbox) == 4
}

// ScaleBBox multiplies every coordinate of an [x1, y1, x2, y2] box by factor.
// Used to map boxes found on a downscaled frame back to the full frame.
func ScaleBBox(bbox []float64, factor float64) []float64 {
	if !ValidBBox(bbox) {
		return bbox
	}
	return []float64{bbox[X1] * factor, bbox[Y1] * factor, bbox[X2] * factor, bbox[Y2] * factor}
}

// ClipBBox converts a pixel box to an integer rectangle clipped to bounds.
// Coordinates are truncated toward zero before clipping. The result may be
// empty when the box lies outside bounds or is degenerate.
func ClipBBox(bbox []float64, bounds image.Rectangle) image.Rectangle {
	if !ValidBBox(bbox) {
		return image.Rectangle{}
	}
	// image.Rect would swap inverted corners, so reject them first.
	if bbox[X2] <= bbox[X1] || bbox[Y2] <= bbox[Y1] {
		return image.Rectangle{}
	}
	r := image.Rect(int(bbox[X1]), int(bbox[Y1]), int(bbox[X2]), int(bbox[Y2]))
	return r.Intersect(bounds)
}

// BBoxArea returns the area of an [x1, y1, x2, y2] box, 0 for degenerate boxes.
func BBoxArea(bbox []float64) float64 {
	if !ValidBBox(bbox) {
		return 0
	}
	w := bbox[X2] - bbox[X1]
	h := bbox[Y2] - bbox[Y1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}
