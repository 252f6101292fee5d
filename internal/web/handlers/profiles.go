package handlers

import (
	"log/slog"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/light-recon/internal/database"
	"github.com/kozaktomas/light-recon/internal/logging"
	"github.com/kozaktomas/light-recon/internal/profile"
	"github.com/kozaktomas/light-recon/internal/settings"
)

const (
	defaultSightingsLimit = 50
	maxSightingsLimit     = 1000
)

// ProfileStore reads and edits subject profiles.
type ProfileStore interface {
	Exists(label string) bool
	GetOrCreate(label string) profile.Profile
	Search(query string) ([]profile.Summary, error)
	Update(label string, fn func(*profile.Profile) error) (profile.Profile, error)
}

// SettingsSource returns the current settings.
type SettingsSource interface {
	Get() settings.Settings
}

// ProfilesHandler serves subject profiles and their sighting history.
type ProfilesHandler struct {
	profiles  ProfileStore
	settings  SettingsSource
	sightings database.SightingReader
	logger    *slog.Logger
}

// NewProfilesHandler creates a profiles handler. sightings may be nil when
// the journal is disabled.
func NewProfilesHandler(profiles ProfileStore, s SettingsSource, sightings database.SightingReader, logger *slog.Logger) *ProfilesHandler {
	return &ProfilesHandler{
		profiles:  profiles,
		settings:  s,
		sightings: sightings,
		logger:    logging.OrDefault(logger),
	}
}

// List returns the subjects matching the optional q parameter.
func (h *ProfilesHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.profiles.Search(r.URL.Query().Get("q"))
	if err != nil {
		h.logger.Error("failed to list profiles", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list profiles")
		return
	}
	if result == nil {
		result = []profile.Summary{}
	}
	respondJSON(w, http.StatusOK, result)
}

// lookup resolves the {label} URL parameter, answering 400/404 itself.
func (h *ProfilesHandler) lookup(w http.ResponseWriter, r *http.Request) (string, bool) {
	label := chi.URLParam(r, "label")
	if !profile.ValidLabel(label) {
		respondError(w, http.StatusBadRequest, "invalid label")
		return "", false
	}
	if !h.profiles.Exists(label) {
		respondError(w, http.StatusNotFound, "subject not found")
		return "", false
	}
	return label, true
}

// Get returns one profile. Subjects without a profile file get the defaults.
func (h *ProfilesHandler) Get(w http.ResponseWriter, r *http.Request) {
	label, ok := h.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, profile.Summary{Label: label, Profile: h.profiles.GetOrCreate(label)})
}

// UpdateProfileRequest carries the editable profile fields. Omitted fields
// keep their stored value.
type UpdateProfileRequest struct {
	Name        *string `json:"name"`
	Age         *int    `json:"age"`
	Gender      *string `json:"gender"`
	Occupation  *string `json:"occupation"`
	Nationality *string `json:"nationality"`
	Status      *string `json:"status"`
	ThreatLevel *string `json:"threat_level"`
	Notes       *string `json:"notes"`
}

// validate checks the taxonomy fields against the configured options.
func (req *UpdateProfileRequest) validate(s settings.Settings) string {
	if req.Age != nil && *req.Age < 0 {
		return "age must not be negative"
	}
	if req.Status != nil && !slices.Contains(s.StatusTypeNames(), *req.Status) {
		return "unknown status: " + *req.Status
	}
	if req.ThreatLevel != nil && !slices.Contains(s.ThreatLevelNames(), *req.ThreatLevel) {
		return "unknown threat level: " + *req.ThreatLevel
	}
	if req.Gender != nil && !slices.Contains(s.GenderOptions, *req.Gender) {
		return "unknown gender option: " + *req.Gender
	}
	return ""
}

func (req *UpdateProfileRequest) apply(p *profile.Profile) {
	setString := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	setString(&p.Name, req.Name)
	setString(&p.Gender, req.Gender)
	setString(&p.Occupation, req.Occupation)
	setString(&p.Nationality, req.Nationality)
	setString(&p.Status, req.Status)
	setString(&p.ThreatLevel, req.ThreatLevel)
	setString(&p.Notes, req.Notes)
	if req.Age != nil {
		p.Age = *req.Age
	}
}

// Update edits a profile and returns the stored result.
func (h *ProfilesHandler) Update(w http.ResponseWriter, r *http.Request) {
	label, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := req.validate(h.settings.Get()); msg != "" {
		respondError(w, http.StatusBadRequest, msg)
		return
	}

	p, err := h.profiles.Update(label, func(p *profile.Profile) error {
		req.apply(p)
		return nil
	})
	if err != nil {
		h.logger.Error("failed to update profile", "label", sanitizeForLog(label), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, profile.Summary{Label: label, Profile: p})
}

// SightingsResponse is the journal history of one subject.
type SightingsResponse struct {
	Label     string              `json:"label"`
	Total     int                 `json:"total"`
	Sightings []database.Sighting `json:"sightings"`
}

// Sightings returns the most recent journal rows of a subject.
func (h *ProfilesHandler) Sightings(w http.ResponseWriter, r *http.Request) {
	if h.sightings == nil {
		respondError(w, http.StatusServiceUnavailable, "sightings journal is disabled")
		return
	}
	label := chi.URLParam(r, "label")
	if !profile.ValidLabel(label) {
		respondError(w, http.StatusBadRequest, "invalid label")
		return
	}

	limit := defaultSightingsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSightingsLimit)
	}

	rows, err := h.sightings.ListSightings(r.Context(), label, limit)
	if err != nil {
		h.logger.Error("failed to list sightings", "label", sanitizeForLog(label), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list sightings")
		return
	}
	total, err := h.sightings.CountSightings(r.Context(), label)
	if err != nil {
		h.logger.Error("failed to count sightings", "label", sanitizeForLog(label), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to count sightings")
		return
	}
	if rows == nil {
		rows = []database.Sighting{}
	}
	respondJSON(w, http.StatusOK, SightingsResponse{Label: label, Total: total, Sightings: rows})
}
