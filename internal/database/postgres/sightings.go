package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/light-recon/internal/database"
)

// SightingRepository implements database.SightingStore on PostgreSQL.
type SightingRepository struct {
	pool *Pool
}

// NewSightingRepository creates a new sightings repository
func NewSightingRepository(pool *Pool) *SightingRepository {
	return &SightingRepository{pool: pool}
}

func (r *SightingRepository) Backend() string {
	return "postgres"
}

func (r *SightingRepository) Close() error {
	return r.pool.Close()
}

// SaveSighting stores a sighting
func (r *SightingRepository) SaveSighting(ctx context.Context, s *database.Sighting) error {
	if err := s.Validate(); err != nil {
		return err
	}

	_, err := r.pool.db.ExecContext(ctx, `
		INSERT INTO sightings (id, session_id, label, distance, det_score, embedding, seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.ID, s.SessionID, s.Label, s.Distance, s.DetScore, pgvector.NewVector(s.Embedding), s.SeenAt)
	if err != nil {
		return fmt.Errorf("insert sighting: %w", err)
	}
	return nil
}

const sightingColumns = `id, session_id, label, distance, det_score, embedding, seen_at`

// ListSightings returns the newest sightings of label first
func (r *SightingRepository) ListSightings(ctx context.Context, label string, limit int) ([]database.Sighting, error) {
	query := `SELECT ` + sightingColumns + ` FROM sightings WHERE label = $1 ORDER BY seen_at DESC, id`
	args := []any{label}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// ListSessionSightings returns the sightings of one session in order
func (r *SightingRepository) ListSessionSightings(ctx context.Context, sessionID string) ([]database.Sighting, error) {
	id, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id: %w", err)
	}
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT `+sightingColumns+` FROM sightings WHERE session_id = $1 ORDER BY seen_at, id`, id)
	if err != nil {
		return nil, fmt.Errorf("query session sightings: %w", err)
	}
	defer rows.Close()
	return scanSightings(rows)
}

// CountSightings returns the number of sightings of label, or all when empty
func (r *SightingRepository) CountSightings(ctx context.Context, label string) (int, error) {
	var count int
	var err error
	if label == "" {
		err = r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings`).Scan(&count)
	} else {
		err = r.pool.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sightings WHERE label = $1`, label).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("count sightings: %w", err)
	}
	return count, nil
}

// Stats returns per-label aggregates
func (r *SightingRepository) Stats(ctx context.Context) ([]database.LabelStats, error) {
	rows, err := r.pool.db.QueryContext(ctx, `
		SELECT label, COUNT(*), MIN(seen_at), MAX(seen_at)
		FROM sightings
		GROUP BY label
		ORDER BY label
	`)
	if err != nil {
		return nil, fmt.Errorf("query sighting stats: %w", err)
	}
	defer rows.Close()

	var stats []database.LabelStats
	for rows.Next() {
		var s database.LabelStats
		if err := rows.Scan(&s.Label, &s.Count, &s.FirstSeen, &s.LastSeen); err != nil {
			return nil, fmt.Errorf("scan sighting stats: %w", err)
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sighting stats: %w", err)
	}
	return stats, nil
}

func scanSightings(rows *sql.Rows) ([]database.Sighting, error) {
	var result []database.Sighting
	for rows.Next() {
		var s database.Sighting
		var vec pgvector.Vector
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Label, &s.Distance, &s.DetScore, &vec, &s.SeenAt); err != nil {
			return nil, fmt.Errorf("scan sighting: %w", err)
		}
		s.Embedding = vec.Slice()
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sightings: %w", err)
	}
	return result, nil
}
