package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/config"
	"github.com/kozaktomas/light-recon/internal/logging"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "light-recon",
	Short: "Face identity resolution for live camera feeds",
	Long: `Light Recon enrolls subjects from a camera into a local dataset, builds
an embedding registry from it and resolves faces in a live camera feed
to known identities, showing each subject's profile as they appear.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json (overrides LOG_FORMAT)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// setupLogger installs the process-wide slog logger from env and flags.
func setupLogger() error {
	cfg := config.Load()
	level, format := cfg.Log.Level, cfg.Log.Format
	if logLevel != "" {
		level = logLevel
	}
	if logFormat != "" {
		format = logFormat
	}
	logger, err := logging.New(logging.Options{Level: level, Format: format})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
