package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps an embedded SQLite database holding the guild → channel
// bindings. It uses modernc.org/sqlite for CGO-less builds.
type Store struct {
	dbPath string
	db     *sql.DB
}

// NewStore creates a new Store pointing to dbPath. Call Init() before using it.
func NewStore(dbPath string) *Store {
	return &Store{dbPath: dbPath}
}

// Init opens the SQLite database, configures pragmas, and ensures the schema exists.
func (s *Store) Init() error {
	if s.db != nil {
		return nil
	}
	if s.dbPath == "" {
		return fmt.Errorf("db path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", s.dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}

	// Pragmas for durability and concurrency
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set WAL: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous=FULL;`); err != nil {
		_ = db.Close()
		return fmt.Errorf("set synchronous: %w", err)
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Path returns the database file location.
func (s *Store) Path() string { return s.dbPath }

// LoadBindings returns every persisted guild → channel binding.
func (s *Store) LoadBindings(ctx context.Context) (map[string]string, error) {
	if s.db == nil {
		return nil, fmt.Errorf("store not initialized")
	}

	rows, err := s.db.QueryContext(ctx, `SELECT guild_id, channel_id FROM channel_bindings`)
	if err != nil {
		return nil, fmt.Errorf("query channel bindings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var guildID, channelID string
		if err := rows.Scan(&guildID, &channelID); err != nil {
			return nil, fmt.Errorf("scan channel binding: %w", err)
		}
		out[guildID] = channelID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel bindings: %w", err)
	}
	return out, nil
}

// SaveBindings rewrites the whole table with bindings in one transaction, so
// the stored rows always equal the mapping passed in.
func (s *Store) SaveBindings(ctx context.Context, bindings map[string]string) error {
	if s.db == nil {
		return fmt.Errorf("store not initialized")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM channel_bindings`); err != nil {
		return fmt.Errorf("clear channel bindings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO channel_bindings (guild_id, channel_id, updated_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for guildID, channelID := range bindings {
		if _, err := stmt.ExecContext(ctx, guildID, channelID, now); err != nil {
			return fmt.Errorf("insert binding for guild %s: %w", guildID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit channel bindings: %w", err)
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	const createBindings = `
CREATE TABLE IF NOT EXISTS channel_bindings (
  guild_id    TEXT PRIMARY KEY,
  channel_id  TEXT NOT NULL,
  updated_at  TIMESTAMP NOT NULL
);`

	if _, err := db.Exec(createBindings); err != nil {
		return fmt.Errorf("create channel_bindings: %w", err)
	}
	return nil
}
