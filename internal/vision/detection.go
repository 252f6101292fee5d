package vision

// Best returns the single highest-scoring detection whose score is strictly
// above threshold. The first detection wins ties.
func Best(dets []Detection, threshold float64) (Detection, bool) {
	bestIdx := -1
	for i, d := range dets {
		if d.Score <= threshold {
			continue
		}
		if bestIdx < 0 || d.Score > dets[bestIdx].Score {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Detection{}, false
	}
	return dets[bestIdx], true
}

// Confident returns every detection whose score is strictly above threshold,
// preserving model output order.
func Confident(dets []Detection, threshold float64) []Detection {
	var out []Detection
	for _, d := range dets {
		if d.Score > threshold {
			out = append(out, d)
		}
	}
	return out
}
