package handlers

import (
	"net/http"

	"github.com/kozaktomas/light-recon/internal/settings"
)

// SettingsHandler serves the settings file contents.
type SettingsHandler struct {
	settings SettingsSource
}

// NewSettingsHandler creates a settings handler.
func NewSettingsHandler(s SettingsSource) *SettingsHandler {
	return &SettingsHandler{settings: s}
}

// TaxonomyResponse flattens the configured taxonomies for form widgets.
type TaxonomyResponse struct {
	ThreatLevels  []settings.Option `json:"threat_levels"`
	StatusTypes   []settings.Option `json:"status_types"`
	GenderOptions []string          `json:"gender_options"`
}

// Get returns the current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Get())
}

// Taxonomies returns only the option lists.
func (h *SettingsHandler) Taxonomies(w http.ResponseWriter, r *http.Request) {
	s := h.settings.Get()
	respondJSON(w, http.StatusOK, TaxonomyResponse{
		ThreatLevels:  s.ThreatLevels,
		StatusTypes:   s.StatusTypes,
		GenderOptions: s.GenderOptions,
	})
}
