package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kozaktomas/light-recon/internal/database"
	"github.com/kozaktomas/light-recon/internal/logging"
)

// SightingsHandler serves journal aggregates.
type SightingsHandler struct {
	sightings database.SightingReader
	logger    *slog.Logger
}

// NewSightingsHandler creates a sightings handler. sightings may be nil when
// the journal is disabled.
func NewSightingsHandler(sightings database.SightingReader, logger *slog.Logger) *SightingsHandler {
	return &SightingsHandler{sightings: sightings, logger: logging.OrDefault(logger)}
}

// StatsResponse holds the per-subject aggregates.
type StatsResponse struct {
	Total    int                   `json:"total"`
	Subjects []database.LabelStats `json:"subjects"`
}

// Stats returns how often and when each subject was seen.
func (h *SightingsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.sightings == nil {
		respondError(w, http.StatusServiceUnavailable, "sightings journal is disabled")
		return
	}

	stats, err := h.sightings.Stats(r.Context())
	if err != nil {
		h.logger.Error("failed to load sighting stats", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load sighting stats")
		return
	}
	resp := StatsResponse{Subjects: stats}
	if resp.Subjects == nil {
		resp.Subjects = []database.LabelStats{}
	}
	for _, s := range stats {
		resp.Total += s.Count
	}
	respondJSON(w, http.StatusOK, resp)
}

// Session returns every sighting of one live session.
func (h *SightingsHandler) Session(w http.ResponseWriter, r *http.Request) {
	if h.sightings == nil {
		respondError(w, http.StatusServiceUnavailable, "sightings journal is disabled")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid session id")
		return
	}

	rows, err := h.sightings.ListSessionSightings(r.Context(), id.String())
	if err != nil {
		h.logger.Error("failed to list session sightings", "session", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list sightings")
		return
	}
	if rows == nil {
		rows = []database.Sighting{}
	}
	respondJSON(w, http.StatusOK, rows)
}
