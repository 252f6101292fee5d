package live

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/light-recon/internal/camera"
	"github.com/kozaktomas/light-recon/internal/database"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/profile"
)

// TickInterval is the polling period of a live session.
const TickInterval = 30 * time.Millisecond

var (
	ErrNotRunning  = errors.New("live session is not running")
	ErrNoSwitching = errors.New("camera switching is not available for this source")
)

// ProfileStore is the profile access a live session needs.
type ProfileStore interface {
	ProfileSource
	RecordSighting(label string, at time.Time) (profile.Profile, error)
}

type RunnerOptions struct {
	Matcher  *Matcher
	Profiles ProfileStore
	// Journal receives one row per sighting; nil disables it.
	Journal database.SightingWriter
	Hub     *Hub
	// Camera enables SwitchCamera when the matcher reads from it.
	Camera   *camera.Switcher
	Interval time.Duration
	Logger   *slog.Logger
}

type switchRequest struct {
	index int
	reply chan error
}

// Runner schedules a Matcher on a ticker, feeds the Tracker and publishes
// snapshots. All pipeline work happens on the goroutine calling Run.
type Runner struct {
	matcher  *Matcher
	tracker  *Tracker
	profiles ProfileStore
	journal  database.SightingWriter
	hub      *Hub
	camera   *camera.Switcher
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	sessionID uuid.UUID
	switches  chan switchRequest
	done      chan struct{}
	profile   *profile.Profile
}

func NewRunner(o RunnerOptions) *Runner {
	interval := o.Interval
	if interval <= 0 {
		interval = TickInterval
	}
	hub := o.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Runner{
		matcher:   o.Matcher,
		tracker:   NewTracker(o.Profiles),
		profiles:  o.Profiles,
		journal:   o.Journal,
		hub:       hub,
		camera:    o.Camera,
		interval:  interval,
		logger:    logging.OrDefault(o.Logger),
		now:       time.Now,
		sessionID: uuid.New(),
		switches:  make(chan switchRequest),
		done:      make(chan struct{}),
	}
}

// SessionID identifies this session in snapshots and the sightings journal.
func (r *Runner) SessionID() uuid.UUID {
	return r.sessionID
}

func (r *Runner) Hub() *Hub {
	return r.hub
}

// SwitchCamera asks the running session to move to another device. It
// returns once the new device is open or the switch failed.
func (r *Runner) SwitchCamera(ctx context.Context, index int) error {
	if r.camera == nil {
		return ErrNoSwitching
	}
	req := switchRequest{index: index, reply: make(chan error, 1)}
	select {
	case r.switches <- req:
	case <-r.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run polls frames until ctx is cancelled, the source ends or fails, or a
// camera switch cannot open the requested device. The source is closed on
// return.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)
	defer func() {
		if err := r.matcher.source.Close(); err != nil {
			r.logger.Warn("failed to close frame source", "error", err)
		}
	}()

	r.logger.Info("live session started", "session", r.sessionID)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("live session stopped", "session", r.sessionID, "processed", r.tracker.Processed())
			return nil

		case req := <-r.switches:
			err := r.switchCamera(req.index)
			req.reply <- err
			if err != nil {
				return err
			}

		case <-ticker.C:
			if err := r.step(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					r.logger.Info("frame source exhausted", "session", r.sessionID)
					return nil
				}
				return err
			}
		}
	}
}

func (r *Runner) switchCamera(index int) error {
	r.logger.Info("switching camera", "from", r.camera.Index(), "to", index)
	if err := r.camera.Switch(index); err != nil {
		return err
	}
	r.matcher.Reset()
	r.tracker.Reset()
	r.profile = nil
	return nil
}

// step runs one tick. Detector failures are logged and leave the state as it
// was; source failures are returned.
func (r *Runner) step(ctx context.Context) error {
	out, err := r.matcher.Poll(ctx)
	if err != nil {
		if !errors.Is(err, ErrDetection) {
			return err
		}
		r.logger.Warn("skipping frame", "frame", out.Index, "error", err)
		return nil
	}

	res, processed := r.tracker.Observe(out)
	if processed && res.Entered {
		r.recordSighting(ctx, out, &res)
	}
	if res.Profile != nil {
		r.profile = res.Profile
	}

	cameraIndex := -1
	if r.camera != nil {
		cameraIndex = r.camera.Index()
	}
	r.hub.Publish(Snapshot{
		SessionID: r.sessionID,
		State:     res.State,
		Label:     res.Label,
		Profile:   r.profile,
		Faces:     out.Faces,
		Frame:     out.Index,
		Processed: r.tracker.Processed(),
		Camera:    cameraIndex,
		UpdatedAt: r.now(),
	})
	return nil
}

func (r *Runner) recordSighting(ctx context.Context, out FrameOutcome, res *Resolution) {
	at := r.now()
	r.logger.Info("subject identified",
		"label", res.Label,
		"distance", out.Primary.Distance,
		"det_score", out.Primary.Score)

	if r.profiles != nil {
		p, err := r.profiles.RecordSighting(res.Label, at)
		if err != nil {
			r.logger.Warn("failed to update profile", "label", res.Label, "error", err)
		} else {
			res.Profile = &p
		}
	}

	if r.journal == nil {
		return
	}
	s := &database.Sighting{
		ID:        uuid.New(),
		SessionID: r.sessionID,
		Label:     res.Label,
		Distance:  out.Primary.Distance,
		DetScore:  out.Primary.Score,
		SeenAt:    at,
	}
	if len(out.Faces) > 0 {
		s.Embedding = out.Faces[0].Embedding
	}
	if err := r.journal.SaveSighting(ctx, s); err != nil {
		r.logger.Warn("failed to journal sighting", "label", res.Label, "error", err)
	}
}
