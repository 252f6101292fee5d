package cmd

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/light-recon/internal/registry"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Build and query the embedding registry",
}

var registryBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the whole dataset and report per-subject counts",
	Long: `Embed the best face of every dataset image and report what the registry
would hold. Subjects without a single usable image are listed as
unmatchable.

Examples:
  light-recon registry build
  light-recon registry build --json`,
	Args: cobra.NoArgs,
	RunE: runRegistryBuild,
}

var registryQueryCmd = &cobra.Command{
	Use:   "query <image>",
	Short: "Resolve the best face of an image against the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegistryQuery,
}

var registryNeighborsCmd = &cobra.Command{
	Use:   "neighbors <image>",
	Short: "List the nearest stored vectors to the best face of an image",
	Long: `List the approximate nearest registry vectors (HNSW) to the best face of
an image, with their exact distances. Useful to tune the recognition
threshold.`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryNeighbors,
}

func init() {
	rootCmd.AddCommand(registryCmd)
	registryCmd.AddCommand(registryBuildCmd)
	registryCmd.AddCommand(registryQueryCmd)
	registryCmd.AddCommand(registryNeighborsCmd)

	registryBuildCmd.Flags().Bool("json", false, "Output as JSON instead of a table")
	registryQueryCmd.Flags().Bool("json", false, "Output as JSON")
	registryNeighborsCmd.Flags().IntP("limit", "k", 5, "Number of neighbours")
	registryNeighborsCmd.Flags().Bool("json", false, "Output as JSON")
}

// RegistryBuildResult is the output of registry build.
type RegistryBuildResult struct {
	Stats      registry.BuildStats `json:"stats"`
	Subjects   map[string]int      `json:"subjects"`
	Dim        int                 `json:"dim"`
	DurationMs int64               `json:"duration_ms"`
}

func runRegistryBuild(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	ctx := context.Background()
	start := time.Now()

	a, err := newApp()
	if err != nil {
		return err
	}
	manager, err := a.buildRegistry(ctx, jsonOutput)
	if err != nil {
		return err
	}
	reg := manager.Current()
	stats, _ := manager.Stats()

	result := RegistryBuildResult{
		Stats:      stats,
		Subjects:   reg.Counts(),
		Dim:        reg.Dim(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if jsonOutput {
		return outputJSON(result)
	}

	labels := reg.Labels()
	sort.Strings(labels)
	fmt.Printf("\n%-30s %s\n", "SUBJECT", "VECTORS")
	for _, label := range labels {
		fmt.Printf("%-30s %d\n", label, result.Subjects[label])
	}
	fmt.Println()
	fmt.Printf("  Subjects:  %d\n", stats.Subjects)
	fmt.Printf("  Images:    %d\n", stats.Images)
	fmt.Printf("  Embedded:  %d (dim %d)\n", stats.Embedded, result.Dim)
	if stats.Skipped > 0 {
		fmt.Printf("  Skipped:   %d\n", stats.Skipped)
	}
	if stats.Duplicates > 0 {
		fmt.Printf("  Near-duplicate images: %d\n", stats.Duplicates)
	}
	if len(stats.Unmatchable) > 0 {
		fmt.Printf("  Unmatchable subjects: %v\n", stats.Unmatchable)
	}
	fmt.Printf("  Duration:  %s\n", formatDuration(time.Since(start)))
	return nil
}

// embedQueryImage builds the registry and embeds the best face of path.
func embedQueryImage(ctx context.Context, path string, quiet bool) (*registry.Registry, []float32, error) {
	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	manager, err := a.buildRegistry(ctx, quiet)
	if err != nil {
		return nil, nil, err
	}
	vec, err := a.builder().EmbedFile(ctx, path)
	if err != nil {
		if errors.Is(err, registry.ErrNoFace) {
			return nil, nil, fmt.Errorf("%s: no face above the confidence threshold", path)
		}
		return nil, nil, err
	}
	return manager.Current(), vec, nil
}

func runRegistryQuery(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	reg, vec, err := embedQueryImage(context.Background(), args[0], jsonOutput)
	if err != nil {
		return err
	}
	result := reg.Query(vec)
	if jsonOutput {
		return outputJSON(result)
	}

	if result.Known {
		fmt.Printf("%s (distance %.4f, threshold %.2f)\n", result.Label, result.Distance, reg.Config().RecognitionThreshold)
	} else if reg.Len() == 0 {
		fmt.Println("Unknown (registry is empty)")
	} else {
		fmt.Printf("Unknown (closest distance %.4f, threshold %.2f)\n", result.Distance, reg.Config().RecognitionThreshold)
	}
	return nil
}

func runRegistryNeighbors(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	k := mustGetInt(cmd, "limit")
	if k <= 0 {
		return errors.New("--limit must be positive")
	}

	reg, vec, err := embedQueryImage(context.Background(), args[0], jsonOutput)
	if err != nil {
		return err
	}
	neighbors := reg.Nearest(vec, k)
	if jsonOutput {
		if neighbors == nil {
			neighbors = []registry.Neighbor{}
		}
		return outputJSON(neighbors)
	}

	if len(neighbors) == 0 {
		fmt.Println("Registry is empty")
		return nil
	}
	threshold := reg.Config().RecognitionThreshold
	fmt.Printf("%-4s %-30s %-10s %s\n", "#", "SUBJECT", "DISTANCE", "MATCH")
	for i, n := range neighbors {
		match := ""
		if n.Distance < threshold {
			match = "yes"
		}
		fmt.Printf("%-4d %-30s %-10.4f %s\n", i+1, n.Label, n.Distance, match)
	}
	return nil
}
