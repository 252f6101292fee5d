package fingerprint

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		name     string
		hash1    uint64
		hash2    uint64
		expected int
	}{
		{"identical", 0x0, 0x0, 0},
		{"completely different", 0xFFFFFFFFFFFFFFFF, 0x0, 64},
		{"one bit different", 0x1, 0x0, 1},
		{"four bits different", 0xF, 0x0, 4},
		{"half different", 0xFFFFFFFF00000000, 0x0, 32},
		{"alternating", 0xAAAAAAAAAAAAAAAA, 0x5555555555555555, 64},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := HammingDistance(tc.hash1, tc.hash2)
			if result != tc.expected {
				t.Errorf("HammingDistance(%x, %x) = %d; want %d",
					tc.hash1, tc.hash2, result, tc.expected)
			}
		})
	}
}

func TestHash_Near(t *testing.T) {
	tests := []struct {
		name      string
		a, b      Hash
		threshold int
		expected  bool
	}{
		{"identical with threshold 0", Hash{}, Hash{}, 0, true},
		{"both within threshold", Hash{P: 0x0, D: 0x0}, Hash{P: 0x3F, D: 0x7}, 6, true},
		{"phash too far", Hash{P: 0x0}, Hash{P: 0x7F}, 6, false},
		{"dhash too far", Hash{D: 0x0}, Hash{D: 0xFFFF}, 6, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Near(tc.b, tc.threshold); got != tc.expected {
				t.Errorf("Near(%s, %s, %d) = %v; want %v", tc.a, tc.b, tc.threshold, got, tc.expected)
			}
		})
	}
}

func TestCompute_Consistent(t *testing.T) {
	img := createGradientImage(100, 100)

	if Compute(img) != Compute(img) {
		t.Error("hash should be deterministic")
	}
}

func TestCompute_SamePixelsDifferentModel(t *testing.T) {
	rgba := createGradientImage(80, 60)
	nrgba := image.NewNRGBA(rgba.Bounds())
	draw.Draw(nrgba, nrgba.Bounds(), rgba, image.Point{}, draw.Src)

	if !Compute(rgba).Near(Compute(nrgba), 0) {
		t.Errorf("expected identical hashes: %s vs %s", Compute(rgba), Compute(nrgba))
	}
}

func TestCompute_GradientDirectionDiffers(t *testing.T) {
	a := createGradientImage(100, 100)
	b := flipHorizontal(a)

	if Compute(a).Near(Compute(b), DuplicateThreshold) {
		t.Error("mirrored gradient should not be a near-duplicate")
	}
}

func TestCompute_NonZeroOrigin(t *testing.T) {
	img := createGradientImage(100, 100)
	sub := img.SubImage(image.Rect(10, 10, 90, 90))

	// Must not panic on a sub-image whose bounds do not start at 0,0.
	_ = Compute(sub)
}

func TestSet_Add(t *testing.T) {
	s := NewSet(-1)

	if got := s.Add(Hash{P: 0x0, D: 0x0}); got != -1 {
		t.Errorf("first hash should be new, got %d", got)
	}
	if got := s.Add(Hash{P: 0xFFFF, D: 0xFFFF}); got != -1 {
		t.Errorf("distant hash should be new, got %d", got)
	}
	if got := s.Add(Hash{P: 0xFFFE, D: 0xFFFF}); got != 1 {
		t.Errorf("expected near-duplicate of entry 1, got %d", got)
	}
	if got := s.Add(Hash{P: 0x1, D: 0x0}); got != 0 {
		t.Errorf("expected near-duplicate of entry 0, got %d", got)
	}
}

func TestToGrayscale(t *testing.T) {
	img := createTestImage(10, 10, color.RGBA{255, 0, 0, 255})

	gray := toGrayscale(img)

	if len(gray) != 10 || len(gray[0]) != 10 {
		t.Fatalf("expected 10x10 grid, got %dx%d", len(gray), len(gray[0]))
	}
	expectedLuma := 0.299 * 255
	if gray[0][0] < expectedLuma-1 || gray[0][0] > expectedLuma+1 {
		t.Errorf("red pixel luma should be ~%.2f, got %.2f", expectedLuma, gray[0][0])
	}
}

func TestComputeMedian(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		expected float64
	}{
		{"odd count", []float64{1, 2, 3, 4, 5}, 3},
		{"even count", []float64{1, 2, 3, 4}, 2.5},
		{"single value", []float64{42}, 42},
		{"unsorted", []float64{5, 1, 3, 2, 4}, 3},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := computeMedian(tc.values)
			if result != tc.expected {
				t.Errorf("computeMedian(%v) = %f; want %f", tc.values, result, tc.expected)
			}
		})
	}
}

func createTestImage(width, height int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			img.Set(x, y, c)
		}
	}
	return img
}

func createGradientImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := range width {
		for y := range height {
			gray := uint8(x * 255 / width)
			img.Set(x, y, color.RGBA{gray, gray, gray, 255})
		}
	}
	return img
}

func flipHorizontal(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for x := b.Min.X; x < b.Max.X; x++ {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			dst.Set(b.Max.X-1-(x-b.Min.X), y, src.At(x, y))
		}
	}
	return dst
}
