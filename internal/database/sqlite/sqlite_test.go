package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/light-recon/internal/config"
	"github.com/kozaktomas/light-recon/internal/database"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "journal", "sightings.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sighting(session uuid.UUID, label string, at time.Time, vec ...float32) *database.Sighting {
	return &database.Sighting{
		SessionID: session,
		Label:     label,
		Distance:  0.25,
		DetScore:  0.91,
		Embedding: vec,
		SeenAt:    at,
	}
}

func TestStore_SaveAndList(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	session := uuid.New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	// sub-second offsets must still order correctly
	offsets := []time.Duration{0, 500 * time.Millisecond, time.Second}
	for i, off := range offsets {
		if err := store.SaveSighting(ctx, sighting(session, "Alice", base.Add(off), float32(i), 1, 2)); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}

	got, err := store.ListSightings(ctx, "Alice", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 sightings, got %d", len(got))
	}
	for i, want := range []time.Duration{time.Second, 500 * time.Millisecond, 0} {
		if !got[i].SeenAt.Equal(base.Add(want)) {
			t.Errorf("row %d: expected %v, got %v", i, base.Add(want), got[i].SeenAt)
		}
	}
	if got[0].Embedding[0] != 2 || len(got[0].Embedding) != 3 {
		t.Errorf("unexpected embedding %v", got[0].Embedding)
	}
	if got[0].SessionID != session || got[0].ID == uuid.Nil {
		t.Errorf("unexpected ids %s / %s", got[0].SessionID, got[0].ID)
	}
	if got[0].Distance != 0.25 || got[0].DetScore != 0.91 {
		t.Errorf("unexpected scores %+v", got[0])
	}

	limited, err := store.ListSightings(ctx, "Alice", 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("expected 1 row with limit, got %d (%v)", len(limited), err)
	}
}

func TestStore_Validation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.SaveSighting(ctx, sighting(uuid.New(), "Alice", time.Now())); !errors.Is(err, database.ErrEmptyEmbedding) {
		t.Errorf("expected ErrEmptyEmbedding, got %v", err)
	}
	if err := store.SaveSighting(ctx, sighting(uuid.New(), " ", time.Now(), 1)); !errors.Is(err, database.ErrEmptyLabel) {
		t.Errorf("expected ErrEmptyLabel, got %v", err)
	}
	if n, _ := store.CountSightings(ctx, ""); n != 0 {
		t.Errorf("rejected rows must not be written, got %d", n)
	}
}

func TestStore_CountStatsAndSessions(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := []*database.Sighting{
		sighting(first, "Bob", base, 1),
		sighting(first, "Alice", base.Add(time.Minute), 1),
		sighting(second, "Alice", base.Add(time.Hour), 1),
	}
	for _, r := range rows {
		if err := store.SaveSighting(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	if n, err := store.CountSightings(ctx, "Alice"); err != nil || n != 2 {
		t.Errorf("expected 2 Alice sightings, got %d (%v)", n, err)
	}
	if n, err := store.CountSightings(ctx, ""); err != nil || n != 3 {
		t.Errorf("expected 3 sightings, got %d (%v)", n, err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 || stats[0].Label != "Alice" || stats[0].Count != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if !stats[0].FirstSeen.Equal(base.Add(time.Minute)) || !stats[0].LastSeen.Equal(base.Add(time.Hour)) {
		t.Errorf("unexpected range %v - %v", stats[0].FirstSeen, stats[0].LastSeen)
	}

	session, err := store.ListSessionSightings(ctx, first.String())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if len(session) != 2 || session[0].Label != "Bob" {
		t.Errorf("unexpected session rows %+v", session)
	}
	if _, err := store.ListSessionSightings(ctx, "bogus"); err == nil {
		t.Error("expected error for invalid session id")
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sightings.db")
	ctx := context.Background()

	store, err := Open(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.SaveSighting(ctx, sighting(uuid.New(), "Alice", time.Now(), 1, 2)); err != nil {
		t.Fatal(err)
	}
	store.Close()

	store, err = Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	if n, _ := store.CountSightings(ctx, ""); n != 1 {
		t.Errorf("expected data to survive reopen, got %d", n)
	}
}

func TestDatabaseOpen_PicksSQLite(t *testing.T) {
	cfg := &config.DatabaseConfig{SQLitePath: filepath.Join(t.TempDir(), "s.db")}
	store, err := database.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()
	if store.Backend() != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", store.Backend())
	}

	if _, err := database.Open(context.Background(), &config.DatabaseConfig{SQLitePath: "off"}); !errors.Is(err, database.ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
}
