package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/kurihiro0119/editor-activity-metrics/internal/errors"
	"github.com/kurihiro0119/editor-activity-metrics/internal/store"
)

// sqliteStore implements the Store interface for SQLite
type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (store.Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("failed to open sqlite database", err)
	}

	s := &sqliteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewStoreError("failed to migrate sqlite schema", err)
	}
	return nil
}

// Get decodes the stored JSON value for key into out
func (s *sqliteStore) Get(ctx context.Context, key string, out interface{}) error {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_state WHERE key = ?`, key).Scan(&raw)
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
func (s *sqliteStore) Update(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStoreError("failed to encode key "+key, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(raw), time.Now())
	if err != nil {
		return apperrors.NewStoreError("failed to write key "+key, err)
	}
	return nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}
