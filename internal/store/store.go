package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thanhnguyendafa-ux/git-vmind-gg-3-sub002/internal/models"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// Store is the crash-durable persistence layer backing the sync queue.
// One row per mutation, keyed by id, surviving process restarts.
type Store struct {
	db     *sql.DB
	path   string
	logger *zerolog.Logger
}

func New(path string, logger *zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("sync queue database initialized")
	return &Store{db: db, path: path, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id TEXT PRIMARY KEY,
            kind TEXT NOT NULL,
            payload TEXT NOT NULL,
            owner_id TEXT NOT NULL,
            created_at INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            attempt INTEGER NOT NULL DEFAULT 0,
            defer_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_created_at ON sync_queue(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_owner_id ON sync_queue(owner_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

// LoadAll returns every persisted mutation in created_at ascending order,
// which is the durable FIFO order the in-memory queue is rebuilt from.
func (s *Store) LoadAll(ctx context.Context) ([]models.Mutation, error) {
	query := `SELECT id, kind, payload, owner_id, created_at, status, attempt, defer_count, last_error
              FROM sync_queue ORDER BY created_at ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync queue: %w", err)
	}
	defer rows.Close()

	var mutations []models.Mutation
	for rows.Next() {
		var m models.Mutation
		var payload string
		err := rows.Scan(&m.ID, &m.Kind, &payload, &m.OwnerID, &m.CreatedAt, &m.Status, &m.Attempt, &m.DeferCount, &m.LastError)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mutation: %w", err)
		}
		m.Payload = []byte(payload)
		mutations = append(mutations, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sync queue rows: %w", err)
	}
	return mutations, nil
}

// Save upserts one mutation. A Save that returns nil is committed to disk.
func (s *Store) Save(ctx context.Context, m *models.Mutation) error {
	query := `INSERT INTO sync_queue (id, kind, payload, owner_id, created_at, status, attempt, defer_count, last_error)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  payload = excluded.payload,
                  status = excluded.status,
                  attempt = excluded.attempt,
                  defer_count = excluded.defer_count,
                  last_error = excluded.last_error`
	_, err := s.db.ExecContext(ctx, query,
		m.ID,
		m.Kind,
		string(m.Payload),
		m.OwnerID,
		m.CreatedAt,
		m.Status,
		m.Attempt,
		m.DeferCount,
		m.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to save mutation %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete mutation %s: %w", id, err)
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_queue`)
	if err != nil {
		return fmt.Errorf("failed to clear sync queue: %w", err)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync queue: %w", err)
	}
	return count, nil
}

// Path returns the on-disk location of the queue database.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}
