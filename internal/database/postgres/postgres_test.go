//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kozaktomas/light-recon/internal/config"
	"github.com/kozaktomas/light-recon/internal/database"
)

func setupTestContainer(t *testing.T) (*Pool, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "pgvector/pgvector:pg16",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Docker not available or container failed to start, skipping integration test: %v", err)
		return nil, func() {}
	}
	if container == nil {
		t.Skip("Docker not available, skipping integration test")
		return nil, func() {}
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	dbURL := fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	cfg := &config.DatabaseConfig{
		URL:          dbURL,
		MaxOpenConns: 5,
		MaxIdleConns: 2,
	}

	pool, err := NewPool(cfg)
	if err != nil {
		container.Terminate(ctx)
		t.Fatalf("Failed to create pool: %v", err)
	}

	// Run migrations
	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		t.Fatalf("Failed to run migrations: %v", err)
	}

	cleanup := func() {
		pool.Close()
		container.Terminate(ctx)
	}

	return pool, cleanup
}

func TestSightingRepository(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	ctx := context.Background()
	repo := NewSightingRepository(pool)
	session := uuid.New()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("SaveAndList", func(t *testing.T) {
		for i := range 3 {
			s := &database.Sighting{
				SessionID: session,
				Label:     "Alice",
				Distance:  0.1 * float64(i+1),
				DetScore:  0.9,
				Embedding: []float32{float32(i), 0.5, 0.25},
				SeenAt:    base.Add(time.Duration(i) * time.Minute),
			}
			if err := repo.SaveSighting(ctx, s); err != nil {
				t.Fatalf("Failed to save sighting: %v", err)
			}
			if s.ID == uuid.Nil {
				t.Error("Expected an ID to be assigned")
			}
		}

		got, err := repo.ListSightings(ctx, "Alice", 2)
		if err != nil {
			t.Fatalf("Failed to list sightings: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 sightings, got %d", len(got))
		}
		if !got[0].SeenAt.Equal(base.Add(2 * time.Minute)) {
			t.Errorf("Expected newest first, got %v", got[0].SeenAt)
		}
		if len(got[0].Embedding) != 3 || got[0].Embedding[0] != 2 {
			t.Errorf("Unexpected embedding %v", got[0].Embedding)
		}
		if got[0].SessionID != session {
			t.Errorf("Expected session %s, got %s", session, got[0].SessionID)
		}
	})

	t.Run("RejectsEmptyEmbedding", func(t *testing.T) {
		err := repo.SaveSighting(ctx, &database.Sighting{Label: "Bob"})
		if err != database.ErrEmptyEmbedding {
			t.Errorf("Expected ErrEmptyEmbedding, got %v", err)
		}
	})

	t.Run("CountAndStats", func(t *testing.T) {
		if err := repo.SaveSighting(ctx, &database.Sighting{
			SessionID: session, Label: "Bob", Embedding: []float32{1, 1, 1}, SeenAt: base,
		}); err != nil {
			t.Fatalf("Failed to save sighting: %v", err)
		}

		count, err := repo.CountSightings(ctx, "")
		if err != nil {
			t.Fatalf("Failed to count: %v", err)
		}
		if count != 4 {
			t.Errorf("Expected 4, got %d", count)
		}

		stats, err := repo.Stats(ctx)
		if err != nil {
			t.Fatalf("Failed to get stats: %v", err)
		}
		if len(stats) != 2 || stats[0].Label != "Alice" || stats[0].Count != 3 {
			t.Errorf("Unexpected stats %+v", stats)
		}
	})

	t.Run("SessionSightings", func(t *testing.T) {
		got, err := repo.ListSessionSightings(ctx, session.String())
		if err != nil {
			t.Fatalf("Failed to list session: %v", err)
		}
		if len(got) != 4 {
			t.Errorf("Expected 4 sightings, got %d", len(got))
		}
		if _, err := repo.ListSessionSightings(ctx, "not-a-uuid"); err == nil {
			t.Error("Expected error for invalid session id")
		}
	})
}

func TestMigrationsApplied(t *testing.T) {
	pool, cleanup := setupTestContainer(t)
	if pool == nil {
		return
	}
	defer cleanup()

	versions, err := pool.MigrationsApplied(context.Background())
	if err != nil {
		t.Fatalf("Failed to list migrations: %v", err)
	}
	if len(versions) != 1 || versions[0] != "001_sightings.sql" {
		t.Errorf("Unexpected migrations %v", versions)
	}

	// applying again is a no-op
	if err := pool.Migrate(context.Background()); err != nil {
		t.Errorf("Second migrate failed: %v", err)
	}
}
