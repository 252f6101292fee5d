package live

import (
	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/registry"
)

// ScanningRefreshInterval is how many processed frames pass between two
// emissions of the scanning placeholder.
const ScanningRefreshInterval = 100

type State string

const (
	StateScanning     State = "SCANNING"
	StateUnidentified State = "UNIDENTIFIED"
	StateIdentified   State = "IDENTIFIED"
)

// ProfileSource looks up profiles of identified subjects.
type ProfileSource interface {
	GetOrCreate(label string) profile.Profile
}

// Resolution is the tracker output for one processed frame.
type Resolution struct {
	State State
	Label string
	// Profile is set when the frame emits a profile to display.
	Profile *profile.Profile
	// Entered is true when the frame moved into IDENTIFIED(Label).
	Entered bool
}

// Tracker maps per-frame match results to the display state. It keeps no
// history beyond the current state: every processed frame decides on its own.
type Tracker struct {
	profiles ProfileSource

	state     State
	label     string
	processed int
}

func NewTracker(profiles ProfileSource) *Tracker {
	return &Tracker{profiles: profiles, state: StateScanning}
}

// State returns the current state and, when identified, the label.
func (t *Tracker) State() (State, string) {
	return t.state, t.label
}

// Processed returns the number of processed frames seen since the last reset.
func (t *Tracker) Processed() int {
	return t.processed
}

// Observe feeds a polled frame. Skipped frames leave the state untouched and
// report false.
func (t *Tracker) Observe(out FrameOutcome) (Resolution, bool) {
	if !out.Processed {
		return Resolution{State: t.state, Label: t.label}, false
	}
	return t.Update(out.Primary), true
}

// Update applies the result of one processed frame. A nil match means no face
// was detected.
func (t *Tracker) Update(match *registry.MatchResult) Resolution {
	n := t.processed
	t.processed++

	switch {
	case match == nil:
		t.state, t.label = StateScanning, ""
		res := Resolution{State: StateScanning}
		if n%ScanningRefreshInterval == 0 {
			p := profile.Scanning()
			res.Profile = &p
		}
		return res

	case match.Known:
		entered := t.state != StateIdentified || t.label != match.Label
		t.state, t.label = StateIdentified, match.Label
		p := t.profiles.GetOrCreate(match.Label)
		return Resolution{State: StateIdentified, Label: match.Label, Profile: &p, Entered: entered}

	default:
		t.state, t.label = StateUnidentified, ""
		p := profile.Unknown()
		return Resolution{State: StateUnidentified, Profile: &p}
	}
}

// Reset returns to SCANNING and clears the counters.
func (t *Tracker) Reset() {
	t.state = StateScanning
	t.label = ""
	t.processed = 0
}
