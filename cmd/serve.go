package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/web"
	"github.com/kozaktomas/light-recon/internal/web/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a live session behind the HTTP API",
	Long: `Start a live identification session and serve its state over HTTP.

The API lives under /api/v1: the current state, a server-sent event stream
(/events), a WebSocket stream (/ws), subjects, profiles, sightings and
settings. Cameras can be switched with POST /api/v1/camera.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("camera", -1, "Camera index (defaults to camera_index from settings)")
	serveCmd.Flags().String("replay", "", "Read frames from an image directory instead of a camera")
	serveCmd.Flags().Bool("loop", false, "Restart the replay directory when it ends")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" && !cmd.Flags().Changed("port") {
		if p, err := strconv.Atoi(envPort); err == nil && p > 0 {
			port = p
		}
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" && !cmd.Flags().Changed("host") {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
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
	session, err := a.newLiveSession(ctx, mustGetString(cmd, "replay"), mustGetBool(cmd, "loop"), index, false)
	if err != nil {
		return err
	}
	defer session.Close()

	deps := web.Deps{
		Hub:      session.runner.Hub(),
		Cameras:  a.listCameras,
		Registry: session.manager,
		Profiles: a.profiles,
		Settings: a.settings,
		Origins:  middleware.ParseOrigins(a.cfg.Web.AllowedOrigins),
		Logger:   a.logger,
	}
	if session.switcher {
		deps.Switcher = session.runner
	}
	if session.journal != nil {
		deps.Journal = session.journal
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(deps, host, port)

	runnerDone := make(chan error, 1)
	go func() {
		runnerDone <- session.runner.Run(ctx)
	}()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Start()
	}()

	fmt.Printf("Starting Light Recon on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	var runErr error
	runnerFinished := false
	select {
	case <-ctx.Done():
		fmt.Println("\nShutting down...")
	case runErr = <-runnerDone:
		runnerFinished = true
		if runErr == nil {
			// Replay finished: keep serving the last state until interrupted.
			a.logger.Info("live session ended, the API keeps serving the last state")
			<-ctx.Done()
		}
	case err := <-serverDone:
		stop()
		<-runnerDone
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Error during shutdown: %v\n", err)
	}
	stop()

	if !runnerFinished {
		select {
		case runErr = <-runnerDone:
		case <-shutdownCtx.Done():
			runErr = errors.New("live session did not stop in time")
		}
	}
	return runErr
}
