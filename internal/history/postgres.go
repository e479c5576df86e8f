package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// postgresSchema is applied by NewPostgresStoreFromURL.
const postgresSchema = `
	CREATE TABLE IF NOT EXISTS diagnosis_history (
		id BIGSERIAL PRIMARY KEY,
		request_id TEXT NOT NULL DEFAULT '',
		input TEXT NOT NULL,
		resolved JSONB NOT NULL DEFAULT '[]',
		suggestions JSONB NOT NULL DEFAULT '{}',
		outcome TEXT NOT NULL,
		top_label TEXT NOT NULL DEFAULT '',
		candidates JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)
`

// NewPostgresStore creates a new PostgreSQL history store.
// It expects the diagnosis_history table to exist.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a connection pool and ensures the schema exists.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.Exec(postgresSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return store, nil
}

// Record appends one diagnosis attempt.
func (s *PostgresStore) Record(ctx context.Context, record *Record) error {
	enc, err := encodeRecord(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO diagnosis_history (
			request_id, input, resolved, suggestions,
			outcome, top_label, candidates, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`

	err = s.db.QueryRowContext(ctx, query,
		record.RequestID,
		record.Input,
		enc.resolved,
		enc.suggestions,
		record.Outcome,
		record.TopLabel,
		enc.candidates,
		time.Now().UTC(),
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record diagnosis: %w", err)
	}

	return nil
}

// List returns records newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+selectColumns+`
		FROM diagnosis_history
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Count returns the total number of records.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM diagnosis_history").Scan(&count)
	return count, err
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
