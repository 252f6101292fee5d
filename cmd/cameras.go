package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/camera"
)

var camerasCmd = &cobra.Command{
	Use:   "cameras",
	Short: "List capture devices",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		found := a.listCameras()
		if mustGetBool(cmd, "json") {
			if found == nil {
				found = []int{}
			}
			return outputJSON(found)
		}
		if len(found) == 0 {
			fmt.Printf("No cameras found (probed %s for 0..%d)\n", a.cfg.Camera.DevicePattern, camera.MaxProbeIndex-1)
			return nil
		}
		s := a.settings.Get()
		for _, i := range found {
			marks := ""
			if i == s.CameraIndex {
				marks += " [live]"
			}
			if i == s.ScannerCameraIndex {
				marks += " [enroll]"
			}
			fmt.Printf("%d  %s%s\n", i, camera.DevicePath(a.cfg.Camera.DevicePattern, i), marks)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(camerasCmd)
	camerasCmd.Flags().Bool("json", false, "Output as JSON")
}
