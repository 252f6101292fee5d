package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/kozaktomas/light-recon/internal/vision"
)

const (
	scanBufferSize = 1 << 20
	maxFrameSize   = 32 << 20

	// DefaultOpenTimeout bounds how long Open waits for the first frame.
	DefaultOpenTimeout = 10 * time.Second
)

// Options configures an ffmpeg-backed capture device.
type Options struct {
	FFmpegPath  string // defaults to ffmpeg
	InputFormat string // ffmpeg -f value, e.g. v4l2, avfoundation, dshow
	Device      string // e.g. /dev/video0
	Width       int
	Height      int
	Mirror      bool
	OpenTimeout time.Duration
}

func (o Options) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error"}
	if o.InputFormat != "" {
		args = append(args, "-f", o.InputFormat)
	}
	if o.Width > 0 && o.Height > 0 {
		args = append(args, "-video_size", strconv.Itoa(o.Width)+"x"+strconv.Itoa(o.Height))
	}
	args = append(args, "-i", o.Device)
	if o.Mirror {
		args = append(args, "-vf", "hflip")
	}
	return append(args, "-f", "image2pipe", "-vcodec", "mjpeg", "-")
}

// FFmpegSource reads MJPEG frames from an ffmpeg subprocess. A background
// reader keeps only the newest frame so a slow consumer never sees a
// growing backlog.
type FFmpegSource struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc

	frames chan []byte
	done   chan struct{}

	mu      sync.Mutex
	readErr error
	closed  bool
}

// Open starts ffmpeg for the device and waits for the first frame. Failing
// to produce one within the timeout is reported as an error.
func Open(ctx context.Context, opts Options) (*FFmpegSource, error) {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = DefaultOpenTimeout
	}

	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, opts.FFmpegPath, opts.args()...)
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start ffmpeg for %s: %w", opts.Device, err)
	}

	s := &FFmpegSource{
		cmd:    cmd,
		cancel: cancel,
		frames: make(chan []byte, 1),
		done:   make(chan struct{}),
	}
	go s.pump(stdout)

	select {
	case frame := <-s.frames:
		// put it back for the first Read
		s.offer(frame)
		return s, nil
	case <-s.done:
		select {
		case frame := <-s.frames:
			// short stream that ended right after its first frame
			s.offer(frame)
			return s, nil
		default:
		}
		err := s.err()
		_ = s.Close()
		// stderr is safe to read once Close has waited for the process
		if msg := bytes.TrimSpace(stderr.Bytes()); len(msg) > 0 {
			return nil, fmt.Errorf("failed to open camera %s: %w: %s", opts.Device, err, msg)
		}
		return nil, fmt.Errorf("failed to open camera %s: %w", opts.Device, err)
	case <-time.After(opts.OpenTimeout):
		_ = s.Close()
		return nil, fmt.Errorf("failed to open camera %s: no frame within %s", opts.Device, opts.OpenTimeout)
	}
}

func (s *FFmpegSource) pump(stdout io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, scanBufferSize), maxFrameSize)
	scanner.Split(SplitJpeg)
	for scanner.Scan() {
		frame := make([]byte, len(scanner.Bytes()))
		copy(frame, scanner.Bytes())
		s.offer(frame)
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

// offer replaces any unread frame with frame.
func (s *FFmpegSource) offer(frame []byte) {
	select {
	case <-s.frames:
	default:
	}
	select {
	case s.frames <- frame:
	default:
	}
}

func (s *FFmpegSource) err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.readErr != nil {
		return s.readErr
	}
	return io.EOF
}

// Read blocks for the next frame and decodes it.
func (s *FFmpegSource) Read() (image.Image, error) {
	select {
	case frame := <-s.frames:
		return vision.Decode(frame)
	case <-s.done:
		// drain a frame that raced with shutdown
		select {
		case frame := <-s.frames:
			return vision.Decode(frame)
		default:
		}
		return nil, s.err()
	}
}

// Close stops ffmpeg and releases the device.
func (s *FFmpegSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
	err := s.cmd.Wait()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stopping ffmpeg: %w", err)
	}
	return nil
}
