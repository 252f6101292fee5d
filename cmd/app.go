package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/light-recon/internal/camera"
	"github.com/kozaktomas/light-recon/internal/config"
	"github.com/kozaktomas/light-recon/internal/database"
	_ "github.com/kozaktomas/light-recon/internal/database/postgres"
	_ "github.com/kozaktomas/light-recon/internal/database/sqlite"
	"github.com/kozaktomas/light-recon/internal/enroll"
	"github.com/kozaktomas/light-recon/internal/live"
	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/registry"
	"github.com/kozaktomas/light-recon/internal/settings"
	"github.com/kozaktomas/light-recon/internal/vision"
)

// app bundles the components every command builds from the environment.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	settings *settings.Store
	vision   *vision.Client
	profiles *profile.Store
}

func newApp() (*app, error) {
	cfg := config.Load()
	st, err := settings.Open(cfg.Settings.Path)
	if err != nil {
		return nil, err
	}
	s := st.Get()
	return &app{
		cfg:      cfg,
		logger:   slog.Default(),
		settings: st,
		vision:   vision.NewClient(cfg.Vision.URL),
		profiles: profile.NewStore(cfg.Dataset.Dir, profileDefaults(s)),
	}, nil
}

func profileDefaults(s settings.Settings) profile.Defaults {
	return profile.Defaults{
		Gender:      s.DefaultGender,
		Status:      s.DefaultStatus,
		ThreatLevel: s.DefaultThreatLevel,
	}
}

func (a *app) registryConfig() registry.Config {
	s := a.settings.Get()
	return registry.Config{
		RecognitionThreshold: s.RecognitionThreshold,
		ConfidenceThreshold:  s.ConfidenceThreshold,
	}
}

func (a *app) liveConfig() live.Config {
	s := a.settings.Get()
	return live.Config{
		ConfidenceThreshold: s.ConfidenceThreshold,
		ProcessEveryN:       s.ProcessEveryNFrames,
	}
}

func (a *app) enrollConfig() enroll.Config {
	s := a.settings.Get()
	return enroll.Config{
		AutoCapture:         s.AutoCaptureEnabled,
		ConfidenceThreshold: s.ConfidenceThreshold,
	}
}

func (a *app) builder() *registry.Builder {
	return &registry.Builder{
		Root:     a.cfg.Dataset.Dir,
		Detector: a.vision,
		Embedder: a.vision,
		Config:   a.registryConfig(),
		Logger:   a.logger,
	}
}

// buildRegistry creates a Manager and loads the dataset into it, drawing a
// progress bar unless quiet is set.
func (a *app) buildRegistry(ctx context.Context, quiet bool) (*registry.Manager, error) {
	b := a.builder()
	if !quiet {
		total, err := b.CountImages()
		if err != nil {
			return nil, err
		}
		if total > 0 {
			bar := newBuildProgressBar(total)
			b.Progress = func(string) { bar.Add(1) }
			defer fmt.Println()
		}
	}

	manager := registry.NewManager(b, a.logger)
	if err := manager.Rebuild(ctx); err != nil {
		return nil, fmt.Errorf("failed to build registry: %w", err)
	}
	return manager, nil
}

func newBuildProgressBar(count int) *progressbar.ProgressBar {
	return progressbar.NewOptions(count,
		progressbar.OptionSetDescription("Embedding dataset"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)
}

// cameraOpener opens capture devices through ffmpeg with the configured
// resolution and mirroring.
func (a *app) cameraOpener(ctx context.Context) camera.Opener {
	s := a.settings.Get()
	return func(index int) (camera.Source, error) {
		return camera.Open(ctx, camera.Options{
			FFmpegPath:  a.cfg.Camera.FFmpegPath,
			InputFormat: a.cfg.Camera.InputFormat,
			Device:      camera.DevicePath(a.cfg.Camera.DevicePattern, index),
			Width:       s.CameraWidth,
			Height:      s.CameraHeight,
			Mirror:      s.MirrorMode,
		})
	}
}

// listCameras probes the configured device pattern.
func (a *app) listCameras() []int {
	return camera.ListDevices(a.cfg.Camera.DevicePattern)
}

// openSource opens the frame source for a session: a replay directory when
// replay is set, otherwise the camera at index. The switcher is nil for
// replay sources.
func (a *app) openSource(ctx context.Context, replay string, loop bool, index int) (camera.Source, *camera.Switcher, error) {
	if replay != "" {
		src, err := camera.OpenDirectory(replay, loop)
		if err != nil {
			return nil, nil, err
		}
		return src, nil, nil
	}

	sw := camera.NewSwitcher(a.cameraOpener(ctx))
	if err := sw.Switch(index); err != nil {
		return nil, nil, err
	}
	return sw, sw, nil
}

// openJournal opens the sightings journal. It returns nil without error when
// the journal is disabled.
func (a *app) openJournal(ctx context.Context) (database.SightingStore, error) {
	store, err := database.Open(ctx, &a.cfg.Database)
	if errors.Is(err, database.ErrDisabled) {
		a.logger.Info("sightings journal disabled")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.logger.Info("sightings journal ready", "backend", store.Backend())
	return store, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
