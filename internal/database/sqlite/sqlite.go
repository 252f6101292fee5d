// Package sqlite stores the sightings journal in an embedded SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kozaktomas/light-recon/internal/config"
	"github.com/kozaktomas/light-recon/internal/database"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func init() {
	database.RegisterSQLiteBackend(func(ctx context.Context, cfg *config.DatabaseConfig) (database.SightingStore, error) {
		return Open(ctx, cfg.SQLitePath)
	})
}

// Store implements database.SightingStore on SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the journal file at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Backend() string {
	return "sqlite"
}

// Path returns the journal file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) applyMigrations(ctx context.Context) error {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations directory: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY)"); err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}

	for _, file := range files {
		var count int
		row := tx.QueryRowContext(ctx, "SELECT COUNT(1) FROM schema_migrations WHERE version = ?", file)
		if err := row.Scan(&count); err != nil {
			return fmt.Errorf("scan migration version: %w", err)
		}
		if count > 0 {
			continue
		}
		content, err := migrationsFS.ReadFile("migrations/" + file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
			return fmt.Errorf("record migration %s: %w", file, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// SaveSighting stores a sighting. The embedding is kept as a JSON array.
func (s *Store) SaveSighting(ctx context.Context, sg *database.Sighting) error {
	if err := sg.Validate(); err != nil {
		return err
	}
	embedding, err := json.Marshal(sg.Embedding)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sightings (id, session_id, label, distance, det_score, embedding, seen_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sg.ID.String(),
		sg.SessionID.String(),
		sg.Label,
		sg.Distance,
		sg.DetScore,
		string(embedding),
		sg.SeenAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

// timeLayout has a fixed width so that text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sightingColumns = `id, session_id, label, distance, det_score, embedding, seen_at`

// ListSightings returns the newest sightings of label first.
func (s *Store) ListSightings(ctx context.Context, label string, limit int) ([]database.Sighting, error) {
	query := `SELECT ` + sightingColumns + ` FROM sightings WHERE label = ? ORDER BY seen_at DESC, id`
	args := []any{label}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// ListSessionSightings returns the sightings of one session in order.
func (s *Store) ListSessionSightings(ctx context.Context, sessionID string) ([]database.Sighting, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sightingColumns+` FROM sightings WHERE session_id = ? ORDER BY seen_at, id`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query session sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// CountSightings returns the number of sightings of label, or all when empty.
func (s *Store) CountSightings(ctx context.Context, label string) (int, error) {
	var count int
	var err error
	if label == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&count)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings WHERE label = ?`, label).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count sightings: %w", err)
	}
	return count, nil
}

// Stats returns per-label aggregates ordered by label.
func (s *Store) Stats(ctx context.Context) ([]database.LabelStats, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT label, COUNT(*), MIN(seen_at), MAX(seen_at)
        FROM sightings
        GROUP BY label
        ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("query sighting stats: %w", err)
	}
	defer rows.Close()

	var stats []database.LabelStats
	for rows.Next() {
		var st database.LabelStats
		var first, last string
		if err := rows.Scan(&st.Label, &st.Count, &first, &last); err != nil {
			return nil, fmt.Errorf("scan sighting stats: %w", err)
		}
		if st.FirstSeen, err = parseTime(first); err != nil {
			return nil, err
		}
		if st.LastSeen, err = parseTime(last); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sighting stats: %w", err)
	}
	return stats, nil
}

func scanSightings(rows *sql.Rows) ([]database.Sighting, error) {
	var result []database.Sighting
	for rows.Next() {
		var (
			sg                database.Sighting
			id, session, seen string
			embedding         string
		)
		if err := rows.Scan(&id, &session, &sg.Label, &sg.Distance, &sg.DetScore, &embedding, &seen); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		var err error
		if sg.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse sighting id: %w", err)
		}
		if sg.SessionID, err = uuid.Parse(session); err != nil {
			return nil, fmt.Errorf("parse session id: %w", err)
		}
		if err := json.Unmarshal([]byte(embedding), &sg.Embedding); err != nil {
			return nil, fmt.Errorf("unmarshal embedding: %w", err)
		}
		if sg.SeenAt, err = parseTime(seen); err != nil {
			return nil, err
		}
		result = append(result, sg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}
	return result, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
