// Package fingerprint computes perceptual hashes used to spot near-duplicate
// enrollment photos in the dataset.
package fingerprint

import (
	"fmt"
	"image"
	"math"
	"math/bits"
	"sort"

	"golang.org/x/image/draw"
)

// DuplicateThreshold is the Hamming distance at or below which both hashes
// must fall for two images to count as near-duplicates.
const DuplicateThreshold = 6

// Hash holds the 64-bit perceptual (DCT) and difference hashes of an image.
type Hash struct {
	P uint64 `json:"phash"`
	D uint64 `json:"dhash"`
}

// Compute hashes img.
func Compute(img image.Image) Hash {
	return Hash{P: computePHash(img), D: computeDHash(img)}
}

func (h Hash) String() string {
	return fmt.Sprintf("%016x:%016x", h.P, h.D)
}

// Near reports whether both hashes are within threshold bits of other's.
func (h Hash) Near(other Hash, threshold int) bool {
	return HammingDistance(h.P, other.P) <= threshold &&
		HammingDistance(h.D, other.D) <= threshold
}

// HammingDistance computes the Hamming distance between two 64-bit hashes.
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// Set remembers hashes seen so far and reports near-duplicates of them.
type Set struct {
	threshold int
	seen      []Hash
}

// NewSet creates an empty set. A negative threshold uses DuplicateThreshold.
func NewSet(threshold int) *Set {
	if threshold < 0 {
		threshold = DuplicateThreshold
	}
	return &Set{threshold: threshold}
}

// Add records h and returns the index of the first earlier hash it is near,
// or -1 when h is new.
func (s *Set) Add(h Hash) int {
	for i, prev := range s.seen {
		if h.Near(prev, s.threshold) {
			s.seen = append(s.seen, h)
			return i
		}
	}
	s.seen = append(s.seen, h)
	return -1
}

// computePHash computes a 64-bit perceptual hash using DCT.
func computePHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 32, 32))
	dct := computeDCT(gray)

	// Low frequencies from the top-left 8x8 block, DC component excluded.
	lowFreq := make([]float64, 0, 64)
	for u := range 8 {
		for v := range 8 {
			if u == 0 && v == 0 {
				continue
			}
			lowFreq = append(lowFreq, dct[u][v])
		}
	}
	lowFreq = append(lowFreq, dct[8][0])

	median := computeMedian(lowFreq)

	var hash uint64
	for i, v := range lowFreq {
		if v > median {
			hash |= 1 << (63 - i)
		}
	}
	return hash
}

// computeDHash compares horizontally adjacent pixels of a 9x8 thumbnail.
func computeDHash(img image.Image) uint64 {
	gray := toGrayscale(resizeImage(img, 9, 8))

	var hash uint64
	bit := 63
	for y := range 8 {
		for x := range 8 {
			if gray[x][y] > gray[x+1][y] {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

func resizeImage(img image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// toGrayscale converts an image to a column-major grid of luma values (0-255).
func toGrayscale(img *image.RGBA) [][]float64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	gray := make([][]float64, width)
	for x := range width {
		gray[x] = make([]float64, height)
		for y := range height {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma.
			gray[x][y] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
		}
	}
	return gray
}

// computeDCT computes the 2D DCT-II of a square grayscale grid.
func computeDCT(gray [][]float64) [][]float64 {
	size := len(gray)
	cosTable := make([][]float64, size)
	for i := range cosTable {
		cosTable[i] = make([]float64, size)
		for j := range size {
			cosTable[i][j] = math.Cos(math.Pi * float64(i) * (2*float64(j) + 1) / (2 * float64(size)))
		}
	}

	dct := make([][]float64, size)
	for u := range size {
		dct[u] = make([]float64, size)
		for v := range size {
			var sum float64
			for x := range size {
				for y := range size {
					sum += gray[x][y] * cosTable[u][x] * cosTable[v][y]
				}
			}
			dct[u][v] = sum
		}
	}
	return dct
}

func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
