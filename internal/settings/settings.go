// Package settings holds the user-editable settings file: thresholds, camera options and the
// profile taxonomies with their colours.
package settings

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// FallbackColor is returned for taxonomy names that have no colour assigned.
const FallbackColor = "#808080"

var (
	ErrDuplicate = errors.New("entry already exists")
	ErrNotFound  = errors.New("entry not found")
)

// Option is a named taxonomy value with its display colour.
type Option struct {
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color" json:"color"`
}

// Settings holds the user-editable application settings.
type Settings struct {
	AutoCaptureEnabled  bool    `yaml:"auto_capture_enabled" json:"auto_capture_enabled"`
	AutoCaptureInterval float64 `yaml:"auto_capture_interval" json:"auto_capture_interval"`
	CaptureCountTarget  int     `yaml:"capture_count_target" json:"capture_count_target"`
	ScannerCameraIndex  int     `yaml:"scanner_camera_index" json:"scanner_camera_index"`

	RecognitionThreshold float64 `yaml:"recognition_threshold" json:"recognition_threshold"`
	ConfidenceThreshold  float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	ProcessEveryNFrames  int     `yaml:"process_every_n_frames" json:"process_every_n_frames"`

	CameraIndex  int  `yaml:"camera_index" json:"camera_index"`
	CameraWidth  int  `yaml:"camera_width" json:"camera_width"`
	CameraHeight int  `yaml:"camera_height" json:"camera_height"`
	MirrorMode   bool `yaml:"mirror_mode" json:"mirror_mode"`

	ThreatLevels  []Option `yaml:"threat_levels" json:"threat_levels"`
	StatusTypes   []Option `yaml:"status_types" json:"status_types"`
	GenderOptions []string `yaml:"gender_options" json:"gender_options"`

	DefaultStatus      string `yaml:"default_status" json:"default_status"`
	DefaultThreatLevel string `yaml:"default_threat_level" json:"default_threat_level"`
	DefaultGender      string `yaml:"default_gender" json:"default_gender"`
}

// Defaults returns a fresh copy of the built-in settings.
func Defaults() Settings {
	var s Settings
	if err := yaml.Unmarshal(defaultsYAML, &s); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return s
}

// Parse decodes YAML settings over the defaults. Keys missing from data keep
// their default value; invalid numeric values are replaced by the default.
func Parse(data []byte) (Settings, error) {
	s := Defaults()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("failed to parse settings: %w", err)
	}
	s.normalize()
	return s, nil
}

// Load reads settings from path. A missing file yields the defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), nil
		}
		return Defaults(), fmt.Errorf("failed to read settings: %w", err)
	}
	return Parse(data)
}

// Save writes settings to path, replacing the previous file atomically.
func Save(path string, s Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create settings directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}

func (s *Settings) normalize() {
	d := Defaults()
	if s.RecognitionThreshold <= 0 {
		s.RecognitionThreshold = d.RecognitionThreshold
	}
	if s.ConfidenceThreshold <= 0 || s.ConfidenceThreshold >= 1 {
		s.ConfidenceThreshold = d.ConfidenceThreshold
	}
	if s.ProcessEveryNFrames < 1 {
		s.ProcessEveryNFrames = d.ProcessEveryNFrames
	}
	if s.AutoCaptureInterval <= 0 {
		s.AutoCaptureInterval = d.AutoCaptureInterval
	}
	if s.CaptureCountTarget <= 0 {
		s.CaptureCountTarget = d.CaptureCountTarget
	}
	if s.CameraIndex < 0 {
		s.CameraIndex = d.CameraIndex
	}
	if s.ScannerCameraIndex < 0 {
		s.ScannerCameraIndex = d.ScannerCameraIndex
	}
	if s.CameraWidth <= 0 || s.CameraHeight <= 0 {
		s.CameraWidth, s.CameraHeight = d.CameraWidth, d.CameraHeight
	}
	if strings.TrimSpace(s.DefaultStatus) == "" {
		s.DefaultStatus = d.DefaultStatus
	}
	if strings.TrimSpace(s.DefaultThreatLevel) == "" {
		s.DefaultThreatLevel = d.DefaultThreatLevel
	}
	if strings.TrimSpace(s.DefaultGender) == "" {
		s.DefaultGender = d.DefaultGender
	}
}

// ThreatLevelNames returns the configured threat level names in order.
func (s *Settings) ThreatLevelNames() []string {
	return optionNames(s.ThreatLevels)
}

// StatusTypeNames returns the configured status type names in order.
func (s *Settings) StatusTypeNames() []string {
	return optionNames(s.StatusTypes)
}

// ThreatLevelColor returns the colour for a threat level, or FallbackColor.
func (s *Settings) ThreatLevelColor(name string) string {
	return optionColor(s.ThreatLevels, name)
}

// StatusColor returns the colour for a status type, or FallbackColor.
func (s *Settings) StatusColor(name string) string {
	return optionColor(s.StatusTypes, name)
}

func (s *Settings) AddThreatLevel(name, color string) error {
	return addOption(&s.ThreatLevels, name, color)
}

func (s *Settings) RemoveThreatLevel(name string) error {
	return removeOption(&s.ThreatLevels, name)
}

// UpdateThreatLevel renames a threat level and sets its colour. An empty
// newName keeps the current name.
func (s *Settings) UpdateThreatLevel(oldName, newName, color string) error {
	return updateOption(s.ThreatLevels, oldName, newName, color)
}

func (s *Settings) AddStatusType(name, color string) error {
	return addOption(&s.StatusTypes, name, color)
}

func (s *Settings) RemoveStatusType(name string) error {
	return removeOption(&s.StatusTypes, name)
}

// UpdateStatusType renames a status type and sets its colour. An empty
// newName keeps the current name.
func (s *Settings) UpdateStatusType(oldName, newName, color string) error {
	return updateOption(s.StatusTypes, oldName, newName, color)
}

func (s *Settings) AddGenderOption(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("gender option name is required")
	}
	if slices.Contains(s.GenderOptions, name) {
		return fmt.Errorf("gender option %q: %w", name, ErrDuplicate)
	}
	s.GenderOptions = append(s.GenderOptions, name)
	return nil
}

func (s *Settings) RemoveGenderOption(name string) error {
	i := slices.Index(s.GenderOptions, name)
	if i < 0 {
		return fmt.Errorf("gender option %q: %w", name, ErrNotFound)
	}
	s.GenderOptions = slices.Delete(s.GenderOptions, i, i+1)
	return nil
}

func optionNames(opts []Option) []string {
	names := make([]string, len(opts))
	for i, o := range opts {
		names[i] = o.Name
	}
	return names
}

func optionColor(opts []Option, name string) string {
	for _, o := range opts {
		if o.Name == name {
			return o.Color
		}
	}
	return FallbackColor
}

func findOption(opts []Option, name string) int {
	return slices.IndexFunc(opts, func(o Option) bool { return o.Name == name })
}

func addOption(opts *[]Option, name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("name is required")
	}
	if findOption(*opts, name) >= 0 {
		return fmt.Errorf("%q: %w", name, ErrDuplicate)
	}
	if color == "" {
		color = FallbackColor
	}
	*opts = append(*opts, Option{Name: name, Color: color})
	return nil
}

func removeOption(opts *[]Option, name string) error {
	i := findOption(*opts, name)
	if i < 0 {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	*opts = slices.Delete(*opts, i, i+1)
	return nil
}

func updateOption(opts []Option, oldName, newName, color string) error {
	i := findOption(opts, oldName)
	if i < 0 {
		return fmt.Errorf("%q: %w", oldName, ErrNotFound)
	}
	newName = strings.TrimSpace(newName)
	if newName != "" && newName != oldName {
		if findOption(opts, newName) >= 0 {
			return fmt.Errorf("%q: %w", newName, ErrDuplicate)
		}
		opts[i].Name = newName
	}
	if color != "" {
		opts[i].Color = color
	}
	return nil
}
