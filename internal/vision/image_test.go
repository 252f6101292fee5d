package vision

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestIsImageFile(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"alice_1.jpg", true},
		{"alice_1.JPEG", true},
		{"bob.png", true},
		{"profile.json", false},
		{"notes.txt", false},
		{"scan.bmp", false},
		{"noext", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsImageFile(tt.path); got != tt.expected {
				t.Errorf("IsImageFile(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestScale(t *testing.T) {
	img := solidImage(640, 480, color.White)

	half := Scale(img, 0.5)
	if half.Bounds().Dx() != 320 || half.Bounds().Dy() != 240 {
		t.Errorf("expected 320x240, got %v", half.Bounds())
	}

	tiny := Scale(solidImage(1, 1, color.White), 0.1)
	if tiny.Bounds().Dx() != 1 || tiny.Bounds().Dy() != 1 {
		t.Errorf("expected 1x1 minimum, got %v", tiny.Bounds())
	}
}

func TestCrop(t *testing.T) {
	img := solidImage(100, 80, color.White)
	img.Set(10, 20, color.Black)

	crop, err := Crop(img, image.Rect(10, 20, 40, 60))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crop.Bounds().Dx() != 30 || crop.Bounds().Dy() != 40 {
		t.Errorf("expected 30x40 crop, got %v", crop.Bounds())
	}
	if r, _, _, _ := crop.At(0, 0).RGBA(); r != 0 {
		t.Error("expected crop origin to map to the source pixel (10,20)")
	}
}

func TestCrop_ClipsToBounds(t *testing.T) {
	crop, err := Crop(solidImage(50, 50, color.White), image.Rect(40, 40, 90, 90))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crop.Bounds().Dx() != 10 || crop.Bounds().Dy() != 10 {
		t.Errorf("expected 10x10 crop, got %v", crop.Bounds())
	}
}

func TestCrop_Empty(t *testing.T) {
	_, err := Crop(solidImage(50, 50, color.White), image.Rect(60, 60, 70, 70))
	if !errors.Is(err, ErrEmptyCrop) {
		t.Errorf("expected ErrEmptyCrop, got %v", err)
	}
}

func TestWriteJPEG_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.jpg")
	if err := WriteJPEG(path, solidImage(32, 24, color.RGBA{R: 200, A: 255})); err != nil {
		t.Fatalf("write: %v", err)
	}

	img, err := DecodeFile(path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 24 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}
}

func TestDecode_Garbage(t *testing.T) {
	if _, err := Decode([]byte("not an image")); err == nil {
		t.Error("expected decode error")
	}
	if _, err := DecodeFile(filepath.Join(t.TempDir(), "missing.jpg")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
