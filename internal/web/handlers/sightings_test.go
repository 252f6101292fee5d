package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/kozaktomas/light-recon/internal/database"
	dbmock "github.com/kozaktomas/light-recon/internal/database/mock"
	"github.com/kozaktomas/light-recon/internal/logging"
)

func seedJournal(t *testing.T, session uuid.UUID, labels ...string) *dbmock.MockSightingStore {
	t.Helper()
	journal := dbmock.NewMockSightingStore()
	for _, label := range labels {
		if err := journal.SaveSighting(context.Background(), &database.Sighting{
			SessionID: session,
			Label:     label,
			Embedding: []float32{0.5, 0.5},
		}); err != nil {
			t.Fatal(err)
		}
	}
	return journal
}

func TestSightingsHandler_Stats(t *testing.T) {
	journal := seedJournal(t, uuid.New(), "bob", "alice", "bob")
	handler := NewSightingsHandler(journal, logging.Discard())

	req := httptest.NewRequest("GET", "/api/v1/sightings/stats", nil)
	recorder := httptest.NewRecorder()
	handler.Stats(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result StatsResponse
	parseJSONResponse(t, recorder, &result)
	if result.Total != 3 {
		t.Errorf("expected 3 sightings, got %d", result.Total)
	}
	if len(result.Subjects) != 2 || result.Subjects[0].Label != "alice" || result.Subjects[1].Count != 2 {
		t.Errorf("unexpected per-subject stats %+v", result.Subjects)
	}
}

func TestSightingsHandler_Stats_Errors(t *testing.T) {
	failing := dbmock.NewMockSightingStore()
	failing.StatsError = errors.New("timeout")

	disabled := NewSightingsHandler(nil, logging.Discard())
	recorder := httptest.NewRecorder()
	disabled.Stats(recorder, httptest.NewRequest("GET", "/api/v1/sightings/stats", nil))
	assertStatusCode(t, recorder, http.StatusServiceUnavailable)

	broken := NewSightingsHandler(failing, logging.Discard())
	recorder = httptest.NewRecorder()
	broken.Stats(recorder, httptest.NewRequest("GET", "/api/v1/sightings/stats", nil))
	assertStatusCode(t, recorder, http.StatusInternalServerError)
	assertJSONError(t, recorder, "failed to load sighting stats")
}

func TestSightingsHandler_Session(t *testing.T) {
	session := uuid.New()
	journal := seedJournal(t, session, "alice", "bob")
	if err := journal.SaveSighting(context.Background(), &database.Sighting{
		SessionID: uuid.New(),
		Label:     "carol",
		Embedding: []float32{1},
	}); err != nil {
		t.Fatal(err)
	}
	handler := NewSightingsHandler(journal, logging.Discard())

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/sessions/x/sightings", nil), map[string]string{"id": session.String()})
	recorder := httptest.NewRecorder()
	handler.Session(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	var result []database.Sighting
	parseJSONResponse(t, recorder, &result)
	if len(result) != 2 || result[0].Label != "alice" || result[1].Label != "bob" {
		t.Errorf("expected alice then bob, got %+v", result)
	}
}

func TestSightingsHandler_Session_InvalidID(t *testing.T) {
	handler := NewSightingsHandler(dbmock.NewMockSightingStore(), logging.Discard())

	req := requestWithChiParams(httptest.NewRequest("GET", "/api/v1/sessions/x/sightings", nil), map[string]string{"id": "not-a-uuid"})
	recorder := httptest.NewRecorder()
	handler.Session(recorder, req)

	assertStatusCode(t, recorder, http.StatusBadRequest)
	assertJSONError(t, recorder, "invalid session id")
}
