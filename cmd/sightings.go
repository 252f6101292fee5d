package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/database"
)

var sightingsCmd = &cobra.Command{
	Use:   "sightings [label]",
	Short: "Show the sightings journal",
	Long: `Show the sightings journal: per-subject totals without arguments, the
latest sightings of one subject with a label, or one live session with
--session.

Examples:
  light-recon sightings
  light-recon sightings alice --limit 20
  light-recon sightings --session 6f1c...`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSightings,
}

func init() {
	rootCmd.AddCommand(sightingsCmd)

	sightingsCmd.Flags().Int("limit", 20, "Maximum number of sightings to show")
	sightingsCmd.Flags().String("session", "", "Show every sighting of one live session")
	sightingsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runSightings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	jsonOutput := mustGetBool(cmd, "json")

	a, err := newApp()
	if err != nil {
		return err
	}
	journal, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	if journal == nil {
		return errors.New("sightings journal is disabled (SIGHTINGS_DB_PATH=off and no DATABASE_URL)")
	}
	defer journal.Close()

	switch {
	case mustGetString(cmd, "session") != "":
		id, err := uuid.Parse(mustGetString(cmd, "session"))
		if err != nil {
			return fmt.Errorf("invalid session id: %w", err)
		}
		rows, err := journal.ListSessionSightings(ctx, id.String())
		if err != nil {
			return err
		}
		return printSightings(rows, jsonOutput)

	case len(args) == 1:
		rows, err := journal.ListSightings(ctx, args[0], mustGetInt(cmd, "limit"))
		if err != nil {
			return err
		}
		return printSightings(rows, jsonOutput)
	}

	stats, err := journal.Stats(ctx)
	if err != nil {
		return err
	}
	if jsonOutput {
		if stats == nil {
			stats = []database.LabelStats{}
		}
		return outputJSON(stats)
	}
	if len(stats) == 0 {
		fmt.Println("No sightings recorded")
		return nil
	}
	fmt.Printf("%-20s %-8s %-20s %s\n", "SUBJECT", "COUNT", "FIRST SEEN", "LAST SEEN")
	for _, s := range stats {
		fmt.Printf("%-20s %-8d %-20s %s\n", s.Label, s.Count,
			s.FirstSeen.Local().Format("2006-01-02 15:04:05"), s.LastSeen.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printSightings(rows []database.Sighting, jsonOutput bool) error {
	if jsonOutput {
		if rows == nil {
			rows = []database.Sighting{}
		}
		return outputJSON(rows)
	}
	if len(rows) == 0 {
		fmt.Println("No sightings recorded")
		return nil
	}
	fmt.Printf("%-20s %-20s %-10s %-8s %s\n", "SEEN", "SUBJECT", "DISTANCE", "SCORE", "SESSION")
	for _, s := range rows {
		fmt.Printf("%-20s %-20s %-10.4f %-8.2f %s\n",
			s.SeenAt.Local().Format("2006-01-02 15:04:05"), s.Label, s.Distance, s.DetScore, s.SessionID)
	}
	return nil
}
