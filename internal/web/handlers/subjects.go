package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/registry"
)

// RegistryManager exposes the active registry and rebuilds it.
type RegistryManager interface {
	Current() *registry.Registry
	Stats() (registry.BuildStats, time.Time)
	Rebuild(ctx context.Context) error
}

// SubjectsHandler serves the enrolled subjects.
type SubjectsHandler struct {
	manager RegistryManager
	logger  *slog.Logger

	// one rebuild at a time
	rebuilding sync.Mutex
}

// NewSubjectsHandler creates a subjects handler.
func NewSubjectsHandler(manager RegistryManager, logger *slog.Logger) *SubjectsHandler {
	return &SubjectsHandler{
		manager: manager,
		logger:  logging.OrDefault(logger),
	}
}

// SubjectResponse is one registry label and how many vectors it holds.
type SubjectResponse struct {
	Label   string `json:"label"`
	Vectors int    `json:"vectors"`
}

// SubjectsResponse lists the registry contents.
type SubjectsResponse struct {
	Subjects []SubjectResponse   `json:"subjects"`
	Vectors  int                 `json:"vectors"`
	Build    registry.BuildStats `json:"build"`
	BuiltAt  *time.Time          `json:"built_at,omitempty"`
}

// List returns every registry label in lexical order.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.snapshot())
}

func (h *SubjectsHandler) snapshot() SubjectsResponse {
	reg := h.manager.Current()
	counts := reg.Counts()

	subjects := make([]SubjectResponse, 0, len(counts))
	for _, label := range reg.Labels() {
		subjects = append(subjects, SubjectResponse{Label: label, Vectors: counts[label]})
	}
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Label < subjects[j].Label })

	stats, builtAt := h.manager.Stats()
	resp := SubjectsResponse{
		Subjects: subjects,
		Vectors:  reg.Len(),
		Build:    stats,
	}
	if !builtAt.IsZero() {
		resp.BuiltAt = &builtAt
	}
	return resp
}

// Rebuild rescans the dataset and answers with the new registry contents.
func (h *SubjectsHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	if !h.rebuilding.TryLock() {
		respondError(w, http.StatusConflict, "registry rebuild already in progress")
		return
	}
	defer h.rebuilding.Unlock()

	start := time.Now()
	if err := h.manager.Rebuild(r.Context()); err != nil {
		h.logger.Error("registry rebuild failed", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to rebuild registry")
		return
	}
	h.logger.Info("registry rebuilt", "duration", time.Since(start))
	respondJSON(w, http.StatusOK, h.snapshot())
}
