// Package profile persists the per-subject profile records stored next to the
// enrollment images as dataset/<label>/profile.json.
package profile

import (
	"strings"
	"time"
)

// TimeLayout is the format of LastSeen.
const TimeLayout = "2006-01-02 15:04:05"

// FileName is the profile file inside a subject directory.
const FileName = "profile.json"

// Placeholder taxonomy values.
const (
	StatusScanning     = "SCANNING"
	StatusUnidentified = "UNIDENTIFIED"
	ThreatUnknown      = "UNKNOWN"
)

const (
	unknownValue = "Unknown"
	defaultNotes = "No additional information."
)

// Profile is the metadata shown for an identified subject.
type Profile struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Occupation  string `json:"occupation"`
	Nationality string `json:"nationality"`
	Status      string `json:"status"`
	ThreatLevel string `json:"threat_level"`
	LastSeen    string `json:"last_seen"`
	Notes       string `json:"notes"`
	Sightings   int    `json:"sightings"`
}

// Defaults holds the taxonomy values applied to new profiles, taken from the
// settings file.
type Defaults struct {
	Gender      string
	Status      string
	ThreatLevel string
}

// New returns a profile for label with every empty field defaulted.
func New(label string, d Defaults) Profile {
	p := Profile{Name: label}
	p.applyDefaults(label, d)
	return p
}

func (p *Profile) applyDefaults(label string, d Defaults) {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = label
	}
	if p.Gender == "" {
		p.Gender = d.Gender
	}
	if p.Occupation == "" {
		p.Occupation = unknownValue
	}
	if p.Nationality == "" {
		p.Nationality = unknownValue
	}
	if p.Status == "" {
		p.Status = d.Status
	}
	if p.ThreatLevel == "" {
		p.ThreatLevel = d.ThreatLevel
	}
	if p.Notes == "" {
		p.Notes = defaultNotes
	}
	if p.Age < 0 {
		p.Age = 0
	}
	if p.Sightings < 0 {
		p.Sightings = 0
	}
}

// Touch sets LastSeen to t.
func (p *Profile) Touch(t time.Time) {
	p.LastSeen = t.Format(TimeLayout)
}

// LastSeenTime parses LastSeen. The zero time is returned when it is unset or
// malformed.
func (p *Profile) LastSeenTime() time.Time {
	t, err := time.ParseInLocation(TimeLayout, p.LastSeen, time.Local)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Scanning is shown while no face is in view.
func Scanning() Profile {
	return Profile{
		Name:        "Scanning",
		Gender:      "-",
		Occupation:  "Searching for faces...",
		Nationality: "-",
		Status:      StatusScanning,
		ThreatLevel: ThreatUnknown,
		LastSeen:    "-",
		Notes:       "Position a face in the camera view to begin recognition.",
	}
}

// Unknown is shown for a detected face that matches no enrolled subject.
func Unknown() Profile {
	return Profile{
		Name:        "Unknown Person",
		Gender:      unknownValue,
		Occupation:  unknownValue,
		Nationality: unknownValue,
		Status:      StatusUnidentified,
		ThreatLevel: ThreatUnknown,
		LastSeen:    "Now",
		Notes:       "Face detected but not in database. Use Face Scanner to register.",
	}
}
