package live

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/kozaktomas/light-recon/internal/camera"
	dbmock "github.com/kozaktomas/light-recon/internal/database/mock"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/vision/mock"
)

type runnerFixture struct {
	runner   *Runner
	source   *camera.SliceSource
	detector *mock.MockDetector
	profiles *profile.Store
	journal  *dbmock.MockSightingStore
}

func newRunnerFixture(t *testing.T, loop bool, frames ...image.Image) *runnerFixture {
	t.Helper()
	src := camera.NewSliceSource(frames, loop)
	det := mock.NewMockDetector()
	profiles := profile.NewStore(t.TempDir(), profile.Defaults{Gender: "Male", Status: "CIVILIAN", ThreatLevel: "LOW"})
	journal := dbmock.NewMockSightingStore()

	m := NewMatcher(DefaultConfig(), src, det, mock.NewMockEmbedder(), testRegistry(t), logging.Discard())
	r := NewRunner(RunnerOptions{
		Matcher:  m,
		Profiles: profiles,
		Journal:  journal,
		Interval: time.Millisecond,
		Logger:   logging.Discard(),
	})
	return &runnerFixture{runner: r, source: src, detector: det, profiles: profiles, journal: journal}
}

func TestRunner_RecordsSightingOnEntry(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	ctx := context.Background()

	for range 10 {
		if err := f.runner.step(ctx); err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	p, err := f.profiles.Get("Alice")
	if err != nil {
		t.Fatalf("expected profile written: %v", err)
	}
	if p.Sightings != 1 {
		t.Errorf("expected one sighting for a continuous presence, got %d", p.Sightings)
	}
	if p.LastSeen == "" {
		t.Error("expected last_seen set")
	}

	rows := f.journal.All()
	if len(rows) != 1 {
		t.Fatalf("expected one journal row, got %d", len(rows))
	}
	if rows[0].Label != "Alice" || rows[0].SessionID != f.runner.SessionID() || len(rows[0].Embedding) != 3 {
		t.Errorf("unexpected journal row %+v", rows[0])
	}

	snap, ok := f.runner.Hub().Latest()
	if !ok {
		t.Fatal("expected a published snapshot")
	}
	if snap.State != StateIdentified || snap.Label != "Alice" {
		t.Errorf("unexpected snapshot state %s %q", snap.State, snap.Label)
	}
	if snap.Profile == nil || snap.Profile.Sightings != 1 {
		t.Errorf("expected snapshot to carry the updated profile, got %+v", snap.Profile)
	}
	if snap.Processed != 5 || snap.Frame != 9 {
		t.Errorf("expected 5 processed of 10 frames, got %d / frame %d", snap.Processed, snap.Frame)
	}
}

func TestRunner_ReentryRecordsAgain(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor), solidFrame(aliceColor), solidFrame(bobColor), solidFrame(bobColor))
	ctx := context.Background()

	// processed frames alternate Alice, Bob, Alice, Bob
	for range 8 {
		if err := f.runner.step(ctx); err != nil {
			t.Fatalf("step: %v", err)
		}
	}
	if n := len(f.journal.All()); n != 2 {
		t.Errorf("expected two separate entries, got %d", n)
	}
}

func TestRunner_DetectorErrorLeavesState(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	ctx := context.Background()

	if err := f.runner.step(ctx); err != nil {
		t.Fatal(err)
	}
	f.detector.DetectError = errors.New("timeout")
	for range 4 {
		if err := f.runner.step(ctx); err != nil {
			t.Fatalf("detector error must not stop the session: %v", err)
		}
	}

	if state, label := f.runner.tracker.State(); state != StateIdentified || label != "Alice" {
		t.Errorf("expected state unchanged, got %s %q", state, label)
	}
	if f.runner.tracker.Processed() != 1 {
		t.Errorf("failed frames must not count as processed, got %d", f.runner.tracker.Processed())
	}
}

func TestRunner_JournalFailureIsNotFatal(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	f.journal.SaveError = errors.New("disk full")

	if err := f.runner.step(context.Background()); err != nil {
		t.Fatalf("journal failure must not stop the session: %v", err)
	}
	if p, _ := f.profiles.Get("Alice"); p.Sightings != 1 {
		t.Errorf("profile should still be updated, got %d", p.Sightings)
	}
}

func TestRunner_RunEndsWithSource(t *testing.T) {
	f := newRunnerFixture(t, false, solidFrame(aliceColor), solidFrame(aliceColor), solidFrame(aliceColor))
	ch := f.runner.Hub().AddListener()

	if err := f.runner.Run(context.Background()); err != nil {
		t.Fatalf("exhausted source should end the session cleanly: %v", err)
	}
	if !f.source.Closed() {
		t.Error("expected source closed on return")
	}

	received := 0
	for len(ch) > 0 {
		<-ch
		received++
	}
	if received != 3 {
		t.Errorf("expected 3 snapshots, got %d", received)
	}
}

func TestRunner_SourceFailureIsFatal(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	f.source.ReadError = errors.New("device unplugged")

	if err := f.runner.Run(context.Background()); !errors.Is(err, f.source.ReadError) {
		t.Errorf("expected device error, got %v", err)
	}
}

func TestRunner_StopsOnCancel(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := f.runner.Run(ctx); err != nil {
		t.Errorf("cancellation is a normal stop, got %v", err)
	}
	if !f.source.Closed() {
		t.Error("expected source closed")
	}
}

func TestRunner_SwitchCamera(t *testing.T) {
	var opened []int
	sources := map[int]*camera.SliceSource{}
	sw := camera.NewSwitcher(func(index int) (camera.Source, error) {
		if index == 7 {
			return nil, errors.New("no such device")
		}
		opened = append(opened, index)
		src := camera.NewSliceSource([]image.Image{solidFrame(aliceColor)}, true)
		sources[index] = src
		return src, nil
	})
	if err := sw.Switch(0); err != nil {
		t.Fatal(err)
	}

	profiles := profile.NewStore(t.TempDir(), profile.Defaults{})
	m := NewMatcher(DefaultConfig(), sw, mock.NewMockDetector(), mock.NewMockEmbedder(), testRegistry(t), nil)
	r := NewRunner(RunnerOptions{Matcher: m, Profiles: profiles, Camera: sw, Interval: time.Millisecond, Logger: logging.Discard()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if err := r.SwitchCamera(ctx, 1); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if sw.Index() != 1 {
		t.Errorf("expected camera 1, got %d", sw.Index())
	}

	if err := r.SwitchCamera(ctx, 7); err == nil {
		t.Fatal("expected switch to a missing device to fail")
	}
	if err := <-done; err == nil {
		t.Error("failed device open must end the session with an error")
	}
	cancel()

	if !sources[0].Closed() || !sources[1].Closed() {
		t.Error("expected every opened device released")
	}
	if len(opened) != 2 || opened[0] != 0 || opened[1] != 1 {
		t.Errorf("unexpected open order %v", opened)
	}

	if err := r.SwitchCamera(context.Background(), 2); !errors.Is(err, ErrNotRunning) {
		t.Errorf("expected ErrNotRunning after stop, got %v", err)
	}
}

func TestRunner_SwitchWithoutSwitcher(t *testing.T) {
	f := newRunnerFixture(t, true, solidFrame(aliceColor))
	if err := f.runner.SwitchCamera(context.Background(), 1); !errors.Is(err, ErrNoSwitching) {
		t.Errorf("expected ErrNoSwitching, got %v", err)
	}
}

func TestHub_Listeners(t *testing.T) {
	h := NewHub()
	if _, ok := h.Latest(); ok {
		t.Error("expected no snapshot before publish")
	}

	ch := h.AddListener()
	h.Publish(Snapshot{Frame: 1})
	if got := <-ch; got.Frame != 1 {
		t.Errorf("unexpected snapshot %+v", got)
	}

	// a slow listener does not block publishing
	for i := range ListenerBuffer + 5 {
		h.Publish(Snapshot{Frame: i})
	}
	if latest, _ := h.Latest(); latest.Frame != ListenerBuffer+4 {
		t.Errorf("expected latest frame %d, got %d", ListenerBuffer+4, latest.Frame)
	}

	h.RemoveListener(ch)
	if h.Listeners() != 0 {
		t.Error("expected listener removed")
	}
	for range ch {
	}
}
