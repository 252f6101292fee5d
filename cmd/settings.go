package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/light-recon/internal/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show and edit the settings file",
	Long: `Show and edit the settings file (SETTINGS_PATH, default settings.yaml).

Examples:
  light-recon settings show
  light-recon settings threat add SEVERE "#AA0000"
  light-recon settings status update VISITOR GUEST --color "#9370DB"
  light-recon settings gender remove Other
  light-recon settings reset`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	RunE:  runSettingsShow,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the built-in defaults",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return editSettings(func(s *settings.Settings) error {
			*s = settings.Defaults()
			return nil
		}, "Settings reset to defaults")
	},
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsResetCmd)

	settingsCmd.AddCommand(optionCommand("threat", "threat levels",
		(*settings.Settings).AddThreatLevel,
		(*settings.Settings).RemoveThreatLevel,
		(*settings.Settings).UpdateThreatLevel,
	))
	settingsCmd.AddCommand(optionCommand("status", "status types",
		(*settings.Settings).AddStatusType,
		(*settings.Settings).RemoveStatusType,
		(*settings.Settings).UpdateStatusType,
	))

	genderCmd := &cobra.Command{Use: "gender", Short: "Manage gender options"}
	genderCmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Add a gender option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSettings(func(s *settings.Settings) error {
				return s.AddGenderOption(args[0])
			}, fmt.Sprintf("Added gender option %s", args[0]))
		},
	})
	genderCmd.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a gender option",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSettings(func(s *settings.Settings) error {
				return s.RemoveGenderOption(args[0])
			}, fmt.Sprintf("Removed gender option %s", args[0]))
		},
	})
	settingsCmd.AddCommand(genderCmd)
}

// optionCommand builds the add/remove/update subcommands of a coloured taxonomy.
func optionCommand(
	use, what string,
	add func(*settings.Settings, string, string) error,
	remove func(*settings.Settings, string) error,
	update func(*settings.Settings, string, string, string) error,
) *cobra.Command {
	parent := &cobra.Command{Use: use, Short: "Manage " + what}

	parent.AddCommand(&cobra.Command{
		Use:   "add <name> [color]",
		Short: "Add an entry (colour defaults to " + settings.FallbackColor + ")",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			color := ""
			if len(args) == 2 {
				color = args[1]
			}
			return editSettings(func(s *settings.Settings) error {
				return add(s, args[0], color)
			}, fmt.Sprintf("Added %s to %s", args[0], what))
		},
	})

	parent.AddCommand(&cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSettings(func(s *settings.Settings) error {
				return remove(s, args[0])
			}, fmt.Sprintf("Removed %s from %s", args[0], what))
		},
	})

	updateCmd := &cobra.Command{
		Use:   "update <name> [new-name]",
		Short: "Rename an entry or change its colour",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newName := ""
			if len(args) == 2 {
				newName = args[1]
			}
			color := mustGetString(cmd, "color")
			if newName == "" && color == "" {
				return errors.New("pass a new name or --color")
			}
			return editSettings(func(s *settings.Settings) error {
				return update(s, args[0], newName, color)
			}, fmt.Sprintf("Updated %s in %s", args[0], what))
		},
	}
	updateCmd.Flags().String("color", "", "New colour, e.g. #FF8800")
	parent.AddCommand(updateCmd)

	return parent
}

// editSettings applies fn through the settings store and prints done.
func editSettings(fn func(*settings.Settings) error, done string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	if err := a.settings.Update(fn); err != nil {
		return err
	}
	fmt.Printf("%s (%s)\n", done, a.settings.Path())
	return nil
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(a.settings.Get())
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	fmt.Printf("# %s\n%s", a.settings.Path(), strings.TrimLeft(string(data), "\n"))
	return nil
}
