package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/profile"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "List, show and edit subject profiles",
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled subjects",
	Long: `List the subjects in the dataset with their profile summary.

Examples:
  light-recon profile list
  light-recon profile list --query dvorak`,
	Args: cobra.NoArgs,
	RunE: runProfileList,
}

var profileShowCmd = &cobra.Command{
	Use:   "show <label>",
	Short: "Show one profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <label>",
	Short: "Edit profile fields",
	Long: `Edit the profile of an enrolled subject. Only the given flags change.

Examples:
  light-recon profile edit alice --name "Alice Smith" --threat HIGH
  light-recon profile edit bob --notes "Badge 4411"`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileEditCmd)

	profileListCmd.Flags().StringP("query", "q", "", "Filter by label or name (case and accent insensitive)")
	profileListCmd.Flags().Bool("json", false, "Output as JSON")
	profileShowCmd.Flags().Bool("json", false, "Output as JSON")

	profileEditCmd.Flags().String("name", "", "Display name")
	profileEditCmd.Flags().Int("age", 0, "Age")
	profileEditCmd.Flags().String("gender", "", "Gender")
	profileEditCmd.Flags().String("occupation", "", "Occupation")
	profileEditCmd.Flags().String("nationality", "", "Nationality")
	profileEditCmd.Flags().String("status", "", "Status type")
	profileEditCmd.Flags().String("threat", "", "Threat level")
	profileEditCmd.Flags().String("notes", "", "Free-form notes")
}

func runProfileList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	result, err := a.profiles.Search(mustGetString(cmd, "query"))
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		if result == nil {
			result = []profile.Summary{}
		}
		return outputJSON(result)
	}

	if len(result) == 0 {
		fmt.Println("No subjects found")
		return nil
	}
	fmt.Printf("%-20s %-25s %-12s %-10s %-10s %s\n", "LABEL", "NAME", "STATUS", "THREAT", "SIGHTINGS", "LAST SEEN")
	for _, s := range result {
		fmt.Printf("%-20s %-25s %-12s %-10s %-10d %s\n",
			s.Label, s.Profile.Name, s.Profile.Status, s.Profile.ThreatLevel, s.Profile.Sightings, s.Profile.LastSeen)
	}
	fmt.Printf("\n%d subjects\n", len(result))
	return nil
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	label := args[0]
	if !a.profiles.Exists(label) {
		return fmt.Errorf("subject %q not found in %s", label, a.cfg.Dataset.Dir)
	}
	p := a.profiles.GetOrCreate(label)
	if mustGetBool(cmd, "json") {
		return outputJSON(profile.Summary{Label: label, Profile: p})
	}

	s := a.settings.Get()
	fmt.Printf("Subject:     %s\n", label)
	fmt.Printf("Name:        %s\n", p.Name)
	fmt.Printf("Age:         %d\n", p.Age)
	fmt.Printf("Gender:      %s\n", p.Gender)
	fmt.Printf("Occupation:  %s\n", p.Occupation)
	fmt.Printf("Nationality: %s\n", p.Nationality)
	fmt.Printf("Status:      %s (%s)\n", p.Status, s.StatusColor(p.Status))
	fmt.Printf("Threat:      %s (%s)\n", p.ThreatLevel, s.ThreatLevelColor(p.ThreatLevel))
	fmt.Printf("Sightings:   %d\n", p.Sightings)
	fmt.Printf("Last seen:   %s\n", p.LastSeen)
	fmt.Printf("Notes:       %s\n", p.Notes)
	return nil
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	label := args[0]
	if !a.profiles.Exists(label) {
		return fmt.Errorf("subject %q not found in %s", label, a.cfg.Dataset.Dir)
	}

	s := a.settings.Get()
	flags := cmd.Flags()
	if flags.Changed("status") && !slices.Contains(s.StatusTypeNames(), mustGetString(cmd, "status")) {
		return fmt.Errorf("unknown status %q, expected one of %s", mustGetString(cmd, "status"), strings.Join(s.StatusTypeNames(), ", "))
	}
	if flags.Changed("threat") && !slices.Contains(s.ThreatLevelNames(), mustGetString(cmd, "threat")) {
		return fmt.Errorf("unknown threat level %q, expected one of %s", mustGetString(cmd, "threat"), strings.Join(s.ThreatLevelNames(), ", "))
	}
	if flags.Changed("gender") && !slices.Contains(s.GenderOptions, mustGetString(cmd, "gender")) {
		return fmt.Errorf("unknown gender %q, expected one of %s", mustGetString(cmd, "gender"), strings.Join(s.GenderOptions, ", "))
	}
	if flags.Changed("age") && mustGetInt(cmd, "age") < 0 {
		return errors.New("age must not be negative")
	}

	fields := map[string]func(p *profile.Profile, v string){
		"name":        func(p *profile.Profile, v string) { p.Name = v },
		"gender":      func(p *profile.Profile, v string) { p.Gender = v },
		"occupation":  func(p *profile.Profile, v string) { p.Occupation = v },
		"nationality": func(p *profile.Profile, v string) { p.Nationality = v },
		"status":      func(p *profile.Profile, v string) { p.Status = v },
		"threat":      func(p *profile.Profile, v string) { p.ThreatLevel = v },
		"notes":       func(p *profile.Profile, v string) { p.Notes = v },
	}

	changed := 0
	p, err := a.profiles.Update(label, func(p *profile.Profile) error {
		for name, set := range fields {
			if flags.Changed(name) {
				set(p, strings.TrimSpace(mustGetString(cmd, name)))
				changed++
			}
		}
		if flags.Changed("age") {
			p.Age = mustGetInt(cmd, "age")
			changed++
		}
		if changed == 0 {
			return errors.New("nothing to change, pass at least one field flag")
		}
		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Updated %d field(s) of %s\n", changed, label)
	fmt.Printf("  %s, %s, threat %s\n", p.Name, p.Status, p.ThreatLevel)
	return nil
}
