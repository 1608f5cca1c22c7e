package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/songzhibin97/alertflux/internal/data"

	_ "github.com/lib/pq"
)

// PostgresStorage implements data.DedupStore on a seen_markers table.
// A NULL expires_at never expires.
type PostgresStorage struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresStorage(connStr string, opts ...Option) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	o := newOptions(opts)
	s := &PostgresStorage{db: db, now: o.now}

	err = s.initTables()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return s, nil
}

// Get implements data.DedupStore interface
func (s *PostgresStorage) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, data.ErrInvalidKey
	}

	query := `
        SELECT marker
        FROM seen_markers
        WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
    `

	var marker string
	err := s.db.QueryRowContext(ctx, query, key, s.now()).Scan(&marker)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get marker: %w", err)
	}

	return marker, true, nil
}

// Put implements data.DedupStore interface
func (s *PostgresStorage) Put(ctx context.Context, key, marker string, ttl time.Duration) error {
	if key == "" {
		return data.ErrInvalidKey
	}

	now := s.now()
	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(ttl), Valid: true}
	}

	query := `
        INSERT INTO seen_markers (key, marker, expires_at, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (key) DO UPDATE SET
            marker = EXCLUDED.marker,
            expires_at = EXCLUDED.expires_at,
            created_at = EXCLUDED.created_at
    `

	_, err := s.db.ExecContext(ctx, query, key, marker, expiresAt, now)
	if err != nil {
		return fmt.Errorf("failed to put marker: %w", err)
	}

	return nil
}

// PurgeExpired implements data.Purger interface
func (s *PostgresStorage) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM seen_markers WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired markers: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count purged markers: %w", err)
	}
	return n, nil
}

func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

func (s *PostgresStorage) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS seen_markers (
			key VARCHAR(128) PRIMARY KEY,
			marker TEXT NOT NULL,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ DEFAULT NOW()
		)`,

		`CREATE INDEX IF NOT EXISTS seen_markers_expires_at_idx
			ON seen_markers (expires_at) WHERE expires_at IS NOT NULL`,
	}

	for _, query := range queries {
		_, err := s.db.Exec(query)
		if err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}
