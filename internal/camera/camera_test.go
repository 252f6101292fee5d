package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/light-recon/internal/vision"
)

func solidFrame(c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 12))
	for y := range 12 {
		for x := range 16 {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestSplitJpeg(t *testing.T) {
	jpegA := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	jpegB := []byte{0xFF, 0xD8, 0x04, 0xFF, 0xD9}

	var stream []byte
	stream = append(stream, 0x00, 0x00)
	stream = append(stream, jpegA...)
	stream = append(stream, jpegB...)
	stream = append(stream, 0x00, 0x00)

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(SplitJpeg)

	var tokens [][]byte
	for scanner.Scan() {
		tokens = append(tokens, append([]byte(nil), scanner.Bytes()...))
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("unexpected scanner error: %v", err)
	}

	if len(tokens) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(tokens))
	}
	if !bytes.Equal(tokens[0], jpegA) {
		t.Errorf("expected %X, got %X", jpegA, tokens[0])
	}
	if !bytes.Equal(tokens[1], jpegB) {
		t.Errorf("expected %X, got %X", jpegB, tokens[1])
	}
}

func TestSplitJpeg_TruncatedTail(t *testing.T) {
	stream := []byte{0xFF, 0xD8, 0x01, 0xFF, 0xD9, 0xFF, 0xD8, 0x02}

	scanner := bufio.NewScanner(bytes.NewReader(stream))
	scanner.Split(SplitJpeg)

	count := 0
	for scanner.Scan() {
		count++
	}
	if count != 1 {
		t.Errorf("expected truncated frame to be dropped, got %d frames", count)
	}
}

func TestListDevices(t *testing.T) {
	dir := t.TempDir()
	for _, i := range []int{0, 2, 11} {
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("video%d", i)), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	got := ListDevices(filepath.Join(dir, "video%d"))
	if len(got) != 2 || got[0] != 0 || got[1] != 2 {
		t.Errorf("expected [0 2], got %v", got)
	}
}

func TestOptionsArgs(t *testing.T) {
	args := Options{InputFormat: "v4l2", Device: "/dev/video1", Width: 1280, Height: 720, Mirror: true}.args()
	joined := strings.Join(args, " ")

	for _, want := range []string{"-f v4l2", "-video_size 1280x720", "-i /dev/video1", "-vf hflip", "-f image2pipe -vcodec mjpeg -"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in %q", want, joined)
		}
	}

	plain := strings.Join(Options{Device: "/dev/video0"}.args(), " ")
	if strings.Contains(plain, "hflip") || strings.Contains(plain, "video_size") {
		t.Errorf("unexpected optional flags in %q", plain)
	}
}

func TestDirectorySource(t *testing.T) {
	dir := t.TempDir()
	colors := []color.Color{color.Black, color.White}
	for i, c := range colors {
		if err := vision.WriteJPEG(filepath.Join(dir, fmt.Sprintf("frame_%02d.jpg", i)), solidFrame(c)); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := OpenDirectory(dir, false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	for range colors {
		if _, err := src.Read(); err != nil {
			t.Fatalf("read: %v", err)
		}
	}
	if _, err := src.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF after last frame, got %v", err)
	}
}

func TestDirectorySource_Loop(t *testing.T) {
	dir := t.TempDir()
	if err := vision.WriteJPEG(filepath.Join(dir, "a.jpg"), solidFrame(color.White)); err != nil {
		t.Fatal(err)
	}

	src, err := OpenDirectory(dir, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for range 3 {
		if _, err := src.Read(); err != nil {
			t.Fatalf("looping read failed: %v", err)
		}
	}

	src.Close()
	if _, err := src.Read(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenDirectory_Empty(t *testing.T) {
	if _, err := OpenDirectory(t.TempDir(), false); err == nil {
		t.Error("expected error for directory without images")
	}
}

func TestSliceSource(t *testing.T) {
	src := NewSliceSource([]image.Image{solidFrame(color.Black)}, false)
	if _, err := src.Read(); err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := src.Read(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if src.Reads() != 1 {
		t.Errorf("expected 1 read, got %d", src.Reads())
	}
}

type recordingOpener struct {
	events  []string
	sources map[int]*SliceSource
	fail    map[int]bool
}

func (r *recordingOpener) open(index int) (Source, error) {
	for i, s := range r.sources {
		if !s.Closed() && i != index {
			r.events = append(r.events, fmt.Sprintf("open %d while %d still held", index, i))
		}
	}
	if r.fail[index] {
		return nil, errors.New("device busy")
	}
	r.events = append(r.events, fmt.Sprintf("open %d", index))
	s := NewSliceSource([]image.Image{solidFrame(color.White)}, true)
	r.sources[index] = s
	return s, nil
}

func TestSwitcher_ReleasesBeforeAcquire(t *testing.T) {
	rec := &recordingOpener{sources: map[int]*SliceSource{}, fail: map[int]bool{}}
	sw := NewSwitcher(rec.open)

	if _, err := sw.Read(); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice before first switch, got %v", err)
	}
	if err := sw.Switch(0); err != nil {
		t.Fatalf("switch 0: %v", err)
	}
	if err := sw.Switch(1); err != nil {
		t.Fatalf("switch 1: %v", err)
	}

	if !rec.sources[0].Closed() {
		t.Error("expected device 0 released")
	}
	for _, e := range rec.events {
		if strings.Contains(e, "still held") {
			t.Errorf("device acquired before previous was released: %s", e)
		}
	}
	if sw.Index() != 1 {
		t.Errorf("expected index 1, got %d", sw.Index())
	}
	if _, err := sw.Read(); err != nil {
		t.Errorf("read after switch: %v", err)
	}
}

func TestSwitcher_FailedOpenLeavesNothingOpen(t *testing.T) {
	rec := &recordingOpener{sources: map[int]*SliceSource{}, fail: map[int]bool{3: true}}
	sw := NewSwitcher(rec.open)

	if err := sw.Switch(0); err != nil {
		t.Fatalf("switch 0: %v", err)
	}
	if err := sw.Switch(3); err == nil {
		t.Fatal("expected error opening busy device")
	}
	if !rec.sources[0].Closed() {
		t.Error("expected previous device released even though the new one failed")
	}
	if sw.Index() != -1 {
		t.Errorf("expected no device open, got %d", sw.Index())
	}
}

// fakeFFmpeg writes a shell script that ignores its arguments and streams
// the given JPEG files to stdout, then exits with code.
func fakeFFmpeg(t *testing.T, frames [][]byte, code int, stderr string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script stand-in requires a POSIX shell")
	}
	dir := t.TempDir()
	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	for i, f := range frames {
		p := filepath.Join(dir, fmt.Sprintf("f%d.jpg", i))
		if err := os.WriteFile(p, f, 0o644); err != nil {
			t.Fatal(err)
		}
		fmt.Fprintf(&script, "cat %q\n", p)
	}
	if stderr != "" {
		fmt.Fprintf(&script, "echo %q >&2\n", stderr)
	}
	fmt.Fprintf(&script, "exit %d\n", code)

	path := filepath.Join(dir, "ffmpeg")
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpegSource_ReadsFrames(t *testing.T) {
	frame, err := vision.EncodeJPEG(solidFrame(color.White))
	if err != nil {
		t.Fatal(err)
	}
	bin := fakeFFmpeg(t, [][]byte{frame}, 0, "")

	src, err := Open(context.Background(), Options{FFmpegPath: bin, Device: "/dev/video0", OpenTimeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer src.Close()

	img, err := src.Read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if img.Bounds().Dx() != 16 {
		t.Errorf("unexpected frame bounds %v", img.Bounds())
	}

	if _, err := src.Read(); err == nil {
		t.Error("expected error once the stream ended")
	}
}

func TestFFmpegSource_OpenFailure(t *testing.T) {
	bin := fakeFFmpeg(t, nil, 1, "Cannot open video device")

	_, err := Open(context.Background(), Options{FFmpegPath: bin, Device: "/dev/video7", OpenTimeout: 5 * time.Second})
	if err == nil {
		t.Fatal("expected open failure")
	}
	if !strings.Contains(err.Error(), "/dev/video7") {
		t.Errorf("expected device in error, got %v", err)
	}
}
