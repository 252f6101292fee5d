package camera

import (
	"fmt"
	"image"
	"sync"
)

// Opener acquires the device with the given index.
type Opener func(index int) (Source, error)

// Switcher owns at most one open device and lets the caller move to another
// index. The previous device is always released before the next is acquired.
type Switcher struct {
	open Opener

	mu      sync.Mutex
	current Source
	index   int
}

// NewSwitcher creates a Switcher with no device open.
func NewSwitcher(open Opener) *Switcher {
	return &Switcher{open: open, index: -1}
}

// Switch closes the current device and opens index. On failure no device
// is left open.
func (s *Switcher) Switch(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		err := s.current.Close()
		s.current = nil
		s.index = -1
		if err != nil {
			return fmt.Errorf("releasing camera: %w", err)
		}
	}

	src, err := s.open(index)
	if err != nil {
		return fmt.Errorf("opening camera %d: %w", index, err)
	}
	s.current = src
	s.index = index
	return nil
}

// Index returns the open device index, or -1.
func (s *Switcher) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Read reads from the open device.
func (s *Switcher) Read() (image.Image, error) {
	s.mu.Lock()
	src := s.current
	s.mu.Unlock()

	if src == nil {
		return nil, ErrNoDevice
	}
	return src.Read()
}

// Close releases the open device.
func (s *Switcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	s.index = -1
	return err
}
