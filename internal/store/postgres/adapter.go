package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store"
)

// postgresStore implements the Store interface for PostgreSQL. Used
// for shared deployments where several machines report into one
// backend-adjacent state store.
type postgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL store instance
func NewPostgresStore(connURL string) (store.Store, error) {
	db, err := sql.Open("postgres", connURL)
	if err != nil {
		return nil, apperrors.NewStoreError("failed to open postgres database", err)
	}
	if err := db.Ping(); err != nil {
		return nil, apperrors.NewStoreError("failed to connect to postgres", err)
	}

	s := &postgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *postgresStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewStoreError("failed to migrate postgres schema", err)
	}
	return nil
}

// Get decodes the stored JSON value for key into out
func (s *postgresStore) Get(ctx context.Context, key string, out interface{}) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return apperrors.NewNotFoundError("key " + key)
	}
	if err != nil {
		return apperrors.NewStoreError("failed to read key "+key, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return apperrors.NewStoreError("failed to decode key "+key, err)
	}
	return nil
}

// Update upserts the JSON encoding of value under key
func (s *postgresStore) Update(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStoreError("failed to encode key "+key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, key, string(raw), time.Now())
	if err != nil {
		return apperrors.NewStoreError("failed to write key "+key, err)
	}
	return nil
}

// Close closes the database connection
func (s *postgresStore) Close() error {
	return s.db.Close()
}
