package enroll

import (
	"context"
	"errors"
	"time"

	"github.com/kozaktomas/light-recon/internal/vision"
)

// TickInterval is the polling period of the enrollment loop.
const TickInterval = 30 * time.Millisecond

// Command is an interactive request handled between frames.
type Command int

const (
	CommandCapture Command = iota
	CommandToggleAuto
	CommandSave
	CommandQuit
)

// Status is reported after every polled frame.
type Status struct {
	Frame       int // 1-based count of polled frames
	Faces       int
	Captured    int
	AutoCapture bool
	AutoFired   bool
}

// Loop drives a Session from a frame source.
type Loop struct {
	Session  *Session
	Detector vision.Detector
	Label    string
	Fields   Fields

	// Interval defaults to TickInterval.
	Interval time.Duration
	// OnStatus, when set, is called after every polled frame.
	OnStatus func(Status)
}

// Run polls frames until the subject is saved, a quit command arrives or
// ctx is done. It reports whether the subject was saved. A failed save that
// was rejected by validation is logged and the loop continues.
func (l *Loop) Run(ctx context.Context, commands <-chan Command) (bool, error) {
	s := l.Session
	interval := l.Interval
	if interval <= 0 {
		interval = TickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	frameIndex := 0
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case cmd := <-commands:
			switch cmd {
			case CommandCapture:
				if err := s.CaptureOne(); err != nil {
					return false, err
				}
				s.logger.Info("frame captured", "count", s.Count())
			case CommandToggleAuto:
				s.logger.Info("auto-capture toggled", "enabled", s.ToggleAutoCapture())
			case CommandSave:
				err := s.Finalize(ctx, l.Label, l.Fields)
				if err == nil {
					return true, nil
				}
				if errors.Is(err, ErrInsufficientCaptures) || errors.Is(err, ErrEmptyLabel) || errors.Is(err, ErrInvalidLabel) {
					s.logger.Warn("cannot save subject yet", "error", err)
					continue
				}
				return false, err
			case CommandQuit:
				return false, nil
			}

		case <-ticker.C:
			frame, err := s.source.Read()
			if err != nil {
				return false, err
			}
			frameIndex++

			faces := 0
			dets, err := l.Detector.Detect(ctx, frame)
			if err != nil {
				s.logger.Debug("face detection failed", "frame", frameIndex, "error", err)
			} else {
				faces = len(vision.Confident(dets, s.cfg.ConfidenceThreshold))
			}

			fired, err := s.Tick(frameIndex, faces > 0)
			if err != nil {
				return false, err
			}
			if fired {
				s.logger.Info("auto-captured frame", "count", s.Count())
			}

			if l.OnStatus != nil {
				l.OnStatus(Status{
					Frame:       frameIndex,
					Faces:       faces,
					Captured:    s.Count(),
					AutoCapture: s.auto,
					AutoFired:   fired,
				})
			}
		}
	}
}
