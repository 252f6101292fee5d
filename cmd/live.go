package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/live"
	"github.com/kozaktomas/light-recon/internal/profile"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Identify faces in the camera feed",
	Long: `Run a live identification session on the terminal.

The registry is built from the dataset first, then every other camera frame
is scanned for faces. Each change of the resolved identity is printed with
the subject's profile. Sightings are recorded in the journal.

Examples:
  # Use the camera from the settings file
  light-recon live

  # Use /dev/video2
  light-recon live --camera 2

  # Replay recorded frames instead of a camera
  light-recon live --replay ./footage

  # One JSON line per state change
  light-recon live --json`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().Int("camera", -1, "Camera index (defaults to camera_index from settings)")
	liveCmd.Flags().String("replay", "", "Read frames from an image directory instead of a camera")
	liveCmd.Flags().Bool("loop", false, "Restart the replay directory when it ends")
	liveCmd.Flags().Bool("json", false, "Print state changes as JSON lines")
}

func runLive(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}

	index := mustGetInt(cmd, "camera")
	if index < 0 {
		index = a.settings.Get().CameraIndex
	}
	session, err := a.newLiveSession(ctx, mustGetString(cmd, "replay"), mustGetBool(cmd, "loop"), index, jsonOutput)
	if err != nil {
		return err
	}
	defer session.Close()
	runner := session.runner

	events := runner.Hub().AddListener()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		printStateChanges(events, jsonOutput)
	}()

	if !jsonOutput {
		fmt.Printf("Live session %s started, press Ctrl+C to stop\n", runner.SessionID())
	}
	err = runner.Run(ctx)
	runner.Hub().RemoveListener(events)
	<-printed
	return err
}

// printStateChanges prints one line every time the state or label changes.
func printStateChanges(events <-chan live.Snapshot, jsonOutput bool) {
	var lastState live.State
	var lastLabel string
	encoder := json.NewEncoder(os.Stdout)

	for snap := range events {
		if snap.State == lastState && snap.Label == lastLabel {
			continue
		}
		lastState, lastLabel = snap.State, snap.Label

		if jsonOutput {
			encoder.Encode(snap)
			continue
		}
		switch snap.State {
		case live.StateIdentified:
			fmt.Printf("[%s] IDENTIFIED %s\n", snap.UpdatedAt.Format("15:04:05"), snap.Label)
			if snap.Profile != nil {
				printProfileSummary(snap.Profile)
			}
		case live.StateUnidentified:
			fmt.Printf("[%s] UNIDENTIFIED face in view\n", snap.UpdatedAt.Format("15:04:05"))
		default:
			fmt.Printf("[%s] SCANNING\n", snap.UpdatedAt.Format("15:04:05"))
		}
	}
}

func printProfileSummary(p *profile.Profile) {
	fmt.Printf("  Name:      %s\n", p.Name)
	if p.Age > 0 {
		fmt.Printf("  Age:       %d\n", p.Age)
	}
	fmt.Printf("  Status:    %s\n", p.Status)
	fmt.Printf("  Threat:    %s\n", p.ThreatLevel)
	fmt.Printf("  Sightings: %d (last seen %s)\n", p.Sightings, p.LastSeen)
}
