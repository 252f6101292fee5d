package camera

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kozaktomas/light-recon/internal/vision"
)

// DirectorySource replays the image files of a directory in lexical order.
// It stands in for a device when testing against recorded footage.
type DirectorySource struct {
	mu     sync.Mutex
	paths  []string
	next   int
	loop   bool
	closed bool
}

// OpenDirectory lists the image files of dir. With loop set, Read starts
// over after the last file instead of returning io.EOF.
func OpenDirectory(dir string, loop bool) (*DirectorySource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open replay directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !vision.IsImageFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, fmt.Errorf("replay directory %s contains no images", dir)
	}
	return &DirectorySource{paths: paths, loop: loop}, nil
}

// Read decodes the next file.
func (d *DirectorySource) Read() (image.Image, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	if d.next >= len(d.paths) {
		if !d.loop {
			d.mu.Unlock()
			return nil, io.EOF
		}
		d.next = 0
	}
	path := d.paths[d.next]
	d.next++
	d.mu.Unlock()

	return vision.DecodeFile(path)
}

// Close marks the source closed.
func (d *DirectorySource) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// SliceSource serves frames from memory.
type SliceSource struct {
	mu     sync.Mutex
	frames []image.Image
	next   int
	loop   bool
	closed bool
	reads  int

	// ReadError is returned by every Read when set.
	ReadError error
}

// NewSliceSource serves frames in order, looping when loop is set.
func NewSliceSource(frames []image.Image, loop bool) *SliceSource {
	return &SliceSource{frames: frames, loop: loop}
}

func (s *SliceSource) Read() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.ReadError != nil {
		return nil, s.ReadError
	}
	if s.next >= len(s.frames) {
		if !s.loop || len(s.frames) == 0 {
			return nil, io.EOF
		}
		s.next = 0
	}
	f := s.frames[s.next]
	s.next++
	s.reads++
	return f, nil
}

func (s *SliceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Reads returns the number of frames served.
func (s *SliceSource) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Closed reports whether Close was called.
func (s *SliceSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
