package live

import (
	"testing"

	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/registry"
)

type fakeProfiles struct {
	gets map[string]int
}

func (f *fakeProfiles) GetOrCreate(label string) profile.Profile {
	if f.gets == nil {
		f.gets = map[string]int{}
	}
	f.gets[label]++
	return profile.New(label, profile.Defaults{Status: "CIVILIAN"})
}

func known(label string) *registry.MatchResult {
	return &registry.MatchResult{Label: label, Known: true, Distance: 0.1, Score: 0.9}
}

func unknown() *registry.MatchResult {
	m := registry.UnknownMatch()
	m.Distance = 1.2
	return &m
}

func TestTracker_StartsScanning(t *testing.T) {
	tr := NewTracker(&fakeProfiles{})
	if state, label := tr.State(); state != StateScanning || label != "" {
		t.Errorf("expected SCANNING, got %s %q", state, label)
	}
}

func TestTracker_ScanningPlaceholderInterval(t *testing.T) {
	tr := NewTracker(&fakeProfiles{})

	var emitted []int
	for i := range 250 {
		res := tr.Update(nil)
		if res.State != StateScanning {
			t.Fatalf("frame %d: expected SCANNING, got %s", i, res.State)
		}
		if res.Profile != nil {
			if res.Profile.Name != "Scanning" {
				t.Errorf("frame %d: unexpected placeholder %q", i, res.Profile.Name)
			}
			emitted = append(emitted, i)
		}
	}

	want := []int{0, 100, 200}
	if len(emitted) != len(want) {
		t.Fatalf("expected placeholder at %v, got %v", want, emitted)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Errorf("expected placeholder at %v, got %v", want, emitted)
		}
	}
}

func TestTracker_IdentifiedFetchesEveryFrame(t *testing.T) {
	profiles := &fakeProfiles{}
	tr := NewTracker(profiles)

	first := tr.Update(known("Alice"))
	if first.State != StateIdentified || first.Label != "Alice" || !first.Entered {
		t.Errorf("expected entry into IDENTIFIED(Alice), got %+v", first)
	}
	if first.Profile == nil || first.Profile.Name != "Alice" {
		t.Errorf("expected Alice's profile, got %+v", first.Profile)
	}

	for range 4 {
		if res := tr.Update(known("Alice")); res.Entered {
			t.Error("staying identified must not count as entering")
		}
	}
	if profiles.gets["Alice"] != 5 {
		t.Errorf("expected a profile lookup per frame, got %d", profiles.gets["Alice"])
	}

	if res := tr.Update(known("Bob")); !res.Entered || res.Label != "Bob" {
		t.Errorf("switching subject must count as entering, got %+v", res)
	}
}

func TestTracker_Unidentified(t *testing.T) {
	profiles := &fakeProfiles{}
	tr := NewTracker(profiles)

	res := tr.Update(unknown())
	if res.State != StateUnidentified || res.Label != "" {
		t.Errorf("expected UNIDENTIFIED, got %+v", res)
	}
	if res.Profile == nil || res.Profile.Name != "Unknown Person" {
		t.Errorf("expected unknown placeholder, got %+v", res.Profile)
	}
	if len(profiles.gets) != 0 {
		t.Error("unknown faces must not hit the profile store")
	}
}

func TestTracker_Memoryless(t *testing.T) {
	tr := NewTracker(&fakeProfiles{})

	tr.Update(known("Alice"))
	tr.Update(known("Alice"))
	if res := tr.Update(unknown()); res.State != StateUnidentified {
		t.Errorf("a single mismatch must flip the state, got %s", res.State)
	}
	if res := tr.Update(known("Alice")); !res.Entered {
		t.Error("returning to Alice must count as a new entry")
	}
	if res := tr.Update(nil); res.State != StateScanning {
		t.Errorf("no face must return to SCANNING, got %s", res.State)
	}
}

func TestTracker_SkippedFramesDoNotChangeState(t *testing.T) {
	profiles := &fakeProfiles{}
	tr := NewTracker(profiles)
	tr.Update(known("Alice"))

	for range 10 {
		res, processed := tr.Observe(FrameOutcome{Processed: false})
		if processed {
			t.Fatal("skipped frame reported as processed")
		}
		if res.State != StateIdentified || res.Label != "Alice" || res.Profile != nil {
			t.Errorf("skipped frame changed the resolution: %+v", res)
		}
	}
	if tr.Processed() != 1 {
		t.Errorf("skipped frames must not count, got %d", tr.Processed())
	}
	if profiles.gets["Alice"] != 1 {
		t.Errorf("skipped frames must not fetch profiles, got %d", profiles.gets["Alice"])
	}

	res, processed := tr.Observe(FrameOutcome{Processed: true, Primary: unknown()})
	if !processed || res.State != StateUnidentified {
		t.Errorf("expected processed frame to update state, got %+v", res)
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(&fakeProfiles{})
	tr.Update(nil)
	tr.Update(known("Alice"))

	tr.Reset()
	if state, label := tr.State(); state != StateScanning || label != "" {
		t.Errorf("expected SCANNING after reset, got %s %q", state, label)
	}
	if tr.Processed() != 0 {
		t.Errorf("expected counters cleared, got %d", tr.Processed())
	}
	if res := tr.Update(nil); res.Profile == nil {
		t.Error("expected placeholder on the first frame after reset")
	}
}
