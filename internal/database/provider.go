package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kozaktomas/light-recon/internal/config"
)

// ErrDisabled is returned by Open when the journal is switched off.
var ErrDisabled = errors.New("sightings journal disabled")

// Opener creates a store from the database configuration.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (SightingStore, error)

var (
	postgresOpener Opener
	sqliteOpener   Opener
)

// RegisterPostgresBackend registers the PostgreSQL store constructor.
// This is called by the postgres package to avoid import cycles.
func RegisterPostgresBackend(open Opener) {
	postgresOpener = open
}

// RegisterSQLiteBackend registers the embedded store constructor.
// This is called by the sqlite package to avoid import cycles.
func RegisterSQLiteBackend(open Opener) {
	sqliteOpener = open
}

// Open picks the backend from cfg: PostgreSQL when a URL is set, otherwise
// the embedded SQLite file.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (SightingStore, error) {
	if cfg == nil || cfg.Disabled() {
		return nil, ErrDisabled
	}
	if cfg.URL != "" {
		if postgresOpener == nil {
			return nil, errors.New("postgres backend not registered")
		}
		store, err := postgresOpener(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres journal: %w", err)
		}
		return store, nil
	}
	if sqliteOpener == nil {
		return nil, errors.New("sqlite backend not registered")
	}
	store, err := sqliteOpener(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite journal: %w", err)
	}
	return store, nil
}
