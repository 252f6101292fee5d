// Package camera supplies video frames one poll at a time, from a capture
// device through ffmpeg or from images on disk.
package camera

import (
	"errors"
	"fmt"
	"image"
	"os"
)

var (
	// ErrClosed is returned by Read after Close.
	ErrClosed = errors.New("camera closed")
	// ErrNoDevice is returned when no device is currently open.
	ErrNoDevice = errors.New("no camera device open")
)

// MaxProbeIndex bounds device discovery to /dev/video0 .. /dev/video9.
const MaxProbeIndex = 10

// Source produces one frame per Read. Read blocks until a frame is
// available. A Source is owned by a single session at a time.
type Source interface {
	Read() (image.Image, error)
	Close() error
}

// DevicePath formats the device path for index using pattern (e.g. /dev/video%d).
func DevicePath(pattern string, index int) string {
	return fmt.Sprintf(pattern, index)
}

// ListDevices returns the indices below MaxProbeIndex whose device path exists.
func ListDevices(pattern string) []int {
	var found []int
	for i := range MaxProbeIndex {
		if _, err := os.Stat(DevicePath(pattern, i)); err == nil {
			found = append(found, i)
		}
	}
	return found
}
