package registry

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/kozaktomas/light-recon/internal/facematch"
	"github.com/kozaktomas/light-recon/internal/fingerprint"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/vision"
)

// BuildStats summarizes one registry build.
type BuildStats struct {
	Subjects    int      `json:"subjects"`
	Images      int      `json:"images"`
	Embedded    int      `json:"embedded"`
	Skipped     int      `json:"skipped"`
	Duplicates  int      `json:"near_duplicates"`
	Unmatchable []string `json:"unmatchable,omitempty"`
}

// Builder scans a dataset laid out as <root>/<label>/<image> and embeds the
// best face of every image.
type Builder struct {
	Root     string
	Detector vision.Detector
	Embedder vision.Embedder
	Config   Config
	Logger   *slog.Logger

	// Progress, when set, is called once for every image visited.
	Progress func(path string)
}

type subjectDir struct {
	label  string
	images []string
}

// scan lists subject directories and their image files in lexical order.
// A missing root is an empty dataset.
func (b *Builder) scan() ([]subjectDir, error) {
	entries, err := os.ReadDir(b.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dataset root: %w", err)
	}

	subjects := []subjectDir{}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(b.Root, e.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to read subject directory %s: %w", e.Name(), err)
		}
		s := subjectDir{label: e.Name()}
		for _, f := range files {
			if f.IsDir() || !vision.IsImageFile(f.Name()) {
				continue
			}
			s.images = append(s.images, filepath.Join(dir, f.Name()))
		}
		sort.Strings(s.images)
		subjects = append(subjects, s)
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].label < subjects[j].label })
	return subjects, nil
}

// CountImages returns how many image files a build would visit.
func (b *Builder) CountImages() (int, error) {
	subjects, err := b.scan()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range subjects {
		n += len(s.images)
	}
	return n, nil
}

// Build creates a registry from the dataset. Images that cannot be decoded,
// contain no confident face, or fail to embed are logged and skipped. Only
// context cancellation and an unreadable dataset abort the build.
func (b *Builder) Build(ctx context.Context) (*Registry, BuildStats, error) {
	logger := logging.OrDefault(b.Logger)
	reg := New(b.Config)
	var stats BuildStats

	subjects, err := b.scan()
	if err != nil {
		return nil, stats, err
	}
	if subjects == nil {
		logger.Info("dataset root not found, starting with empty registry", "root", b.Root)
	}

	for _, s := range subjects {
		reg.AddSubject(s.label)
		stats.Subjects++
		embedded := 0
		seen := fingerprint.NewSet(fingerprint.DuplicateThreshold)
		var hashed []string

		for _, path := range s.images {
			if err := ctx.Err(); err != nil {
				return nil, stats, err
			}
			stats.Images++
			if b.Progress != nil {
				b.Progress(path)
			}

			img, err := vision.DecodeFile(path)
			if err == nil {
				if j := seen.Add(fingerprint.Compute(img)); j >= 0 {
					stats.Duplicates++
					logger.Debug("near-duplicate image", "subject", s.label, "path", path, "of", hashed[j])
				}
				hashed = append(hashed, path)
				var vec []float32
				if vec, err = b.embedImage(ctx, img); err == nil {
					err = reg.Add(s.label, vec)
				}
			}
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, stats, ctxErr
				}
				stats.Skipped++
				logger.Warn("skipping image", "subject", s.label, "path", path, "error", err)
				continue
			}
			embedded++
			stats.Embedded++
		}

		if embedded == 0 {
			stats.Unmatchable = append(stats.Unmatchable, s.label)
			logger.Warn("no valid face encodings for subject", "subject", s.label)
		} else {
			logger.Debug("loaded subject", "subject", s.label, "vectors", embedded)
		}
	}

	logger.Info("registry built",
		"subjects", stats.Subjects,
		"vectors", stats.Embedded,
		"skipped", stats.Skipped,
		"near_duplicates", stats.Duplicates)
	return reg, stats, nil
}

// ErrNoFace is returned by EmbedFile when the image holds no confident face.
var ErrNoFace = errors.New("no face detected")

// EmbedFile embeds the highest-scoring confident face of the image at path.
func (b *Builder) EmbedFile(ctx context.Context, path string) ([]float32, error) {
	img, err := vision.DecodeFile(path)
	if err != nil {
		return nil, err
	}
	return b.embedImage(ctx, img)
}

func (b *Builder) embedImage(ctx context.Context, img image.Image) ([]float32, error) {
	dets, err := b.Detector.Detect(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("detection failed: %w", err)
	}
	best, ok := vision.Best(dets, b.Config.ConfidenceThreshold)
	if !ok {
		return nil, ErrNoFace
	}

	crop, err := vision.Crop(img, facematch.ClipBBox(best.BBox, img.Bounds()))
	if err != nil {
		return nil, err
	}
	vec, err := b.Embedder.Embed(ctx, crop)
	if err != nil {
		return nil, fmt.Errorf("embedding failed: %w", err)
	}
	return vec, nil
}
