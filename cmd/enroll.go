package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/enroll"
	"github.com/kozaktomas/light-recon/internal/registry"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <label>",
	Short: "Capture a new subject from the camera",
	Long: `Capture face images of a subject and add them to the dataset.

Type a command and press Enter while the camera runs:
  c   capture the current frame
  a   toggle auto-capture (every 60th frame with a face in view)
  s   save the subject (needs at least 3 captures) and rebuild the registry
  q   quit without saving

Examples:
  light-recon enroll alice --age 31 --status VIP
  light-recon enroll bob --auto --camera 1`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("camera", -1, "Camera index (defaults to scanner_camera_index from settings)")
	enrollCmd.Flags().String("replay", "", "Read frames from an image directory instead of a camera")
	enrollCmd.Flags().Bool("auto", false, "Start with auto-capture enabled (defaults to auto_capture_enabled from settings)")
	enrollCmd.Flags().Int("age", 0, "Age")
	enrollCmd.Flags().String("gender", "", "Gender")
	enrollCmd.Flags().String("occupation", "", "Occupation")
	enrollCmd.Flags().String("nationality", "", "Nationality")
	enrollCmd.Flags().String("status", "", "Status type")
	enrollCmd.Flags().String("threat", "", "Threat level")
	enrollCmd.Flags().String("notes", "", "Free-form notes")
}

// enrollFields reads the profile flags.
func enrollFields(cmd *cobra.Command) enroll.Fields {
	return enroll.Fields{
		Age:         mustGetInt(cmd, "age"),
		Gender:      mustGetString(cmd, "gender"),
		Occupation:  mustGetString(cmd, "occupation"),
		Nationality: mustGetString(cmd, "nationality"),
		Status:      mustGetString(cmd, "status"),
		ThreatLevel: mustGetString(cmd, "threat"),
		Notes:       mustGetString(cmd, "notes"),
	}
}

// parseEnrollCommand maps one input line to a loop command.
func parseEnrollCommand(line string) (enroll.Command, bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "c", "capture":
		return enroll.CommandCapture, true
	case "a", "auto":
		return enroll.CommandToggleAuto, true
	case "s", "save":
		return enroll.CommandSave, true
	case "q", "quit":
		return enroll.CommandQuit, true
	}
	return 0, false
}

func runEnroll(cmd *cobra.Command, args []string) error {
	label, err := enroll.ValidateLabel(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return err
	}
	if a.profiles.Exists(label) {
		fmt.Printf("Subject %s already exists, saving will replace its profile and overwrite images with the same numbers\n", label)
	}

	index := mustGetInt(cmd, "camera")
	if index < 0 {
		index = a.settings.Get().ScannerCameraIndex
	}
	src, _, err := a.openSource(ctx, mustGetString(cmd, "replay"), true, index)
	if err != nil {
		return fmt.Errorf("failed to open frame source: %w", err)
	}
	defer src.Close()

	cfg := a.enrollConfig()
	if cmd.Flags().Changed("auto") {
		cfg.AutoCapture = mustGetBool(cmd, "auto")
	}
	manager := registry.NewManager(a.builder(), a.logger)
	session := enroll.NewSession(cfg, src, a.profiles, manager, a.logger)

	commands := make(chan enroll.Command)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			c, ok := parseEnrollCommand(scanner.Text())
			if !ok {
				fmt.Println("Unknown command, use c, a, s or q")
				continue
			}
			select {
			case commands <- c:
			case <-ctx.Done():
				return
			}
		}
		// stdin closed
		select {
		case commands <- enroll.CommandQuit:
		case <-ctx.Done():
		}
	}()

	fmt.Printf("Enrolling %s. Commands: c=capture a=auto s=save q=quit\n", label)
	lastCaptured := -1
	loop := &enroll.Loop{
		Session:  session,
		Detector: a.vision,
		Label:    label,
		Fields:   enrollFields(cmd),
		OnStatus: func(st enroll.Status) {
			if st.Captured == lastCaptured {
				return
			}
			lastCaptured = st.Captured
			fmt.Printf("Captured %d/%d (minimum %d), auto-capture %v\n", st.Captured, enroll.MaxCaptures, enroll.MinCaptures, st.AutoCapture)
		},
	}

	saved, err := loop.Run(ctx, commands)
	if err != nil {
		if ctx.Err() != nil {
			fmt.Println("\nEnrollment cancelled")
			return nil
		}
		return err
	}
	if !saved {
		fmt.Println("Enrollment aborted, nothing was saved")
		return nil
	}

	stats, _ := manager.Stats()
	fmt.Printf("Subject %s saved. Registry rebuilt: %d subjects, %d vectors\n", label, stats.Subjects, stats.Embedded)
	return nil
}
